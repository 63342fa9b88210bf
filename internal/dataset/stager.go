// Package dataset owns the single staged input dataset. Uploads replace the
// whole set; nothing is ever merged.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoAssets         = errors.New("no files provided")
	ErrInvalidAssetType = errors.New("invalid asset type")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

var allowedExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
}

type InvalidAssetTypeError struct {
	Name string
}

func (e *InvalidAssetTypeError) Error() string {
	return fmt.Sprintf("Invalid file type: %s. Only .tif files allowed.", e.Name)
}

func (e *InvalidAssetTypeError) Is(target error) bool {
	return target == ErrInvalidAssetType
}

type InvalidAssetNameError struct {
	Name string
}

func (e *InvalidAssetNameError) Error() string {
	return fmt.Sprintf("Invalid file name: %q", e.Name)
}

func (e *InvalidAssetNameError) Is(target error) bool {
	return target == ErrInvalidAssetName
}

type Asset struct {
	Name    string
	Content io.Reader
}

type Stager struct {
	dir string
}

func NewStager(dir string) *Stager {
	return &Stager{dir: dir}
}

func (s *Stager) Dir() string {
	return s.dir
}

func IsAllowed(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return &InvalidAssetNameError{Name: name}
	}
	if !IsAllowed(name) {
		return &InvalidAssetTypeError{Name: name}
	}
	return nil
}

// ListCurrent returns the staged asset names in directory order.
func (s *Stager) ListCurrent() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("error listing staged dataset: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsAllowed(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ReplaceAll stages the candidates in a fresh sibling directory and swaps it
// in only once every candidate has been validated and written. A rejected
// batch leaves the current dataset untouched.
func (s *Stager) ReplaceAll(assets []Asset) ([]string, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}

	parent := filepath.Dir(filepath.Clean(s.dir))
	if err := os.MkdirAll(parent, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating staging parent dir: %w", err)
	}

	incoming := s.siblingDir("incoming")
	if err := os.Mkdir(incoming, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating incoming dir: %w", err)
	}

	saved, err := writeAssets(incoming, assets)
	if err != nil {
		if rmErr := os.RemoveAll(incoming); rmErr != nil {
			slog.Error("error removing rejected upload", "dir", incoming, "error", rmErr)
		}
		return nil, err
	}

	if err := s.swap(incoming); err != nil {
		if rmErr := os.RemoveAll(incoming); rmErr != nil {
			slog.Error("error removing incoming dir after failed swap", "dir", incoming, "error", rmErr)
		}
		return nil, err
	}

	slog.Info("dataset replaced", "dir", s.dir, "files", len(saved))
	return saved, nil
}

func (s *Stager) siblingDir(kind string) string {
	clean := filepath.Clean(s.dir)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+"."+kind+"-"+uuid.NewString())
}

func writeAssets(dir string, assets []Asset) ([]string, error) {
	saved := make([]string, 0, len(assets))
	seen := make(map[string]bool, len(assets))
	for _, asset := range assets {
		if err := validateName(asset.Name); err != nil {
			return nil, err
		}

		if err := writeAsset(filepath.Join(dir, asset.Name), asset.Content); err != nil {
			return nil, fmt.Errorf("error saving %s: %w", asset.Name, err)
		}
		if !seen[asset.Name] {
			seen[asset.Name] = true
			saved = append(saved, asset.Name)
		}
	}
	return saved, nil
}

func writeAsset(path string, content io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, content); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (s *Stager) swap(incoming string) error {
	var retired string
	if _, err := os.Stat(s.dir); err == nil {
		retired = s.siblingDir("retired")
		if err := os.Rename(s.dir, retired); err != nil {
			return fmt.Errorf("error moving current dataset aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error checking staging dir: %w", err)
	}

	if err := os.Rename(incoming, s.dir); err != nil {
		if retired != "" {
			if restoreErr := os.Rename(retired, s.dir); restoreErr != nil {
				slog.Error("error restoring previous dataset", "dir", s.dir, "error", restoreErr)
			}
		}
		return fmt.Errorf("error moving new dataset into place: %w", err)
	}

	if retired != "" {
		clearDir(retired)
	}
	return nil
}

// clearDir removes every entry best-effort; failures are logged and skipped.
func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("error listing previous dataset", "dir", dir, "error", err)
		return
	}
	slog.Info("clearing previous dataset", "files", len(entries))
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			slog.Warn("error deleting previous dataset entry", "name", entry.Name(), "error", err)
		}
	}
	if err := os.Remove(dir); err != nil {
		slog.Warn("error removing previous dataset dir", "dir", dir, "error", err)
	}
}
