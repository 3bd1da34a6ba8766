package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// tempPrefix marks in-flight uploads; List never reports them
const tempPrefix = ".upload-"

// FilesystemStore implements ObjectStore on an afero filesystem, one
// directory per container
type FilesystemStore struct {
	fs         afero.Fs
	basePath   string
	credential Credential
}

// NewFilesystemStore creates a store rooted at basePath
func NewFilesystemStore(fs afero.Fs, basePath string) (*FilesystemStore, error) {
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FilesystemStore{
		fs:       fs,
		basePath: basePath,
	}, nil
}

// Credential returns the identity the store was opened with
func (s *FilesystemStore) Credential() Credential {
	return s.credential
}

// Put writes data to a temporary object and renames it into place, so a
// failed upload never leaves a partial object under key
func (s *FilesystemStore) Put(ctx context.Context, container, key string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validate(container, key); err != nil {
		return err
	}

	dir := filepath.Join(s.basePath, container)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create container directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpPath) // Clean up on failure
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to close object: %w", err)
	}

	if err := s.fs.Rename(tmpPath, filepath.Join(dir, key)); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to commit object: %w", err)
	}

	return nil
}

// List returns all committed objects in container
func (s *FilesystemStore) List(ctx context.Context, container string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName("container", container); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.basePath, container)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Object{}, nil // Return empty list if container doesn't exist
		}
		return nil, fmt.Errorf("failed to read container: %w", err)
	}

	return lo.FilterMap(entries, func(entry os.FileInfo, _ int) (Object, bool) {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			return Object{}, false
		}
		return Object{
			Key:          entry.Name(),
			Size:         entry.Size(),
			LastModified: entry.ModTime(),
		}, true
	}), nil
}

// Delete removes an object; a missing object is not an error
func (s *FilesystemStore) Delete(ctx context.Context, container, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validate(container, key); err != nil {
		return err
	}

	if err := s.fs.Remove(filepath.Join(s.basePath, container, key)); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted, not an error
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Open returns a reader for an object
func (s *FilesystemStore) Open(ctx context.Context, container, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validate(container, key); err != nil {
		return nil, err
	}

	file, err := s.fs.Open(filepath.Join(s.basePath, container, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return file, nil
}

func (s *FilesystemStore) validate(container, key string) error {
	if err := ValidateName("container", container); err != nil {
		return err
	}
	return ValidateName("key", key)
}
