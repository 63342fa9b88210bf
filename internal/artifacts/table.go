package artifacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// Table is a parsed tabular artifact: the header row plus one column->value
// map per data row. Short rows simply lack the trailing columns.
type Table struct {
	Headers []string            `json:"headers"`
	Data    []map[string]string `json:"data"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func ParseTable(name string, data []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Artifact: name, Err: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Artifact: name, Err: errors.New("missing header row")}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Headers: headers, Data: make([]map[string]string, 0, len(records)-1)}
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			}
		}
		table.Data = append(table.Data, row)
	}

	return table, nil
}

// Value returns the value of column in the given row; empty values count as
// missing.
func (t *Table) Value(row int, column string) (string, bool) {
	if t == nil || row < 0 || row >= len(t.Data) {
		return "", false
	}
	v, ok := t.Data[row][column]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func EncodeTable(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("error writing rows: %w", err)
	}
	return buf.Bytes(), nil
}
