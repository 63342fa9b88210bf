package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"eval-backend/internal/storage"
)

type Store struct {
	provider storage.Provider
	bucket   string
}

func NewStore(provider storage.Provider, bucket string) *Store {
	return &Store{provider: provider, bucket: bucket}
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.provider.GetObject(ctx, s.bucket, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrMissing)
		}
		return nil, fmt.Errorf("error reading artifact %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := s.provider.PutObject(ctx, s.bucket, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error writing artifact %s: %w", name, err)
	}
	return nil
}

// Remove deletes an artifact; removing an absent artifact succeeds.
func (s *Store) Remove(ctx context.Context, name string) error {
	if err := s.provider.DeleteObject(ctx, s.bucket, name); err != nil {
		return fmt.Errorf("error removing artifact %s: %w", name, err)
	}
	return nil
}

// Import copies the named files from a local directory into the store and
// returns the names that were copied. Files missing from dir are skipped.
func (s *Store) Import(ctx context.Context, dir string, names ...string) ([]string, error) {
	var imported []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Warn("artifact not produced, skipping import", "artifact", name, "dir", dir)
				continue
			}
			return imported, fmt.Errorf("error reading local artifact %s: %w", name, err)
		}
		if err := s.Write(ctx, name, data); err != nil {
			return imported, err
		}
		imported = append(imported, name)
	}
	return imported, nil
}

// Present returns which of the well-known artifacts currently exist in the
// store.
func (s *Store) Present(ctx context.Context) ([]string, error) {
	objs, err := s.provider.ListObjects(ctx, s.bucket, "")
	if err != nil {
		return nil, fmt.Errorf("error listing artifacts: %w", err)
	}

	known := map[string]bool{TimingReportName: true, EvaluationReportName: true, PredictionsName: true}
	present := []string{}
	for _, obj := range objs {
		if known[obj.Name] {
			present = append(present, obj.Name)
		}
	}
	return present, nil
}
