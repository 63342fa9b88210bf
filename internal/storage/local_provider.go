package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type LocalProvider struct {
	dir string
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{dir: dir}
}

func (p *LocalProvider) Dir() string {
	return p.dir
}

func (p *LocalProvider) CreateBucket(ctx context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(p.dir, bucket), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create bucket dir %s: %w", bucket, err)
	}
	return nil
}

func (p *LocalProvider) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, bucket, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// PutObject writes into a temp file next to the target and renames it into
// place, so readers never observe a half-written object.
func (p *LocalProvider) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	path := filepath.Join(p.dir, bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file for %s: %w", key, err)
	}

	if _, err := io.Copy(dst, data); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close object %s: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move object %s into place: %w", key, err)
	}
	return nil
}

func (p *LocalProvider) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	files, err := os.ReadDir(filepath.Join(p.dir, bucket))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var objects []Object
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(file.Name(), prefix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			return nil, err
		}

		objects = append(objects, Object{Name: file.Name(), Size: info.Size()})
	}

	return objects, nil
}

func (p *LocalProvider) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := os.Remove(filepath.Join(p.dir, bucket, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
