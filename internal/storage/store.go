// Package storage is the durable object store that published episodes live in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Open for a missing key
var ErrObjectNotFound = errors.New("object not found")

// Object describes one stored object
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is a key-value store with listing, grouped in containers
type ObjectStore interface {
	// Put creates or overwrites container/key with the contents of data
	Put(ctx context.Context, container, key string, data io.Reader) error

	// List returns every object in the container. A missing container is empty.
	List(ctx context.Context, container string) ([]Object, error)

	// Delete removes container/key. Deleting an absent key succeeds.
	Delete(ctx context.Context, container, key string) error

	// Open returns a reader for container/key
	Open(ctx context.Context, container, key string) (io.ReadCloser, error)
}

// ValidateName checks that a container or key is a single, plain path segment
func ValidateName(kind, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%s name is empty", kind)
	case name == "." || name == "..":
		return fmt.Errorf("invalid %s name %q", kind, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s name %q must not contain path separators", kind, name)
	case strings.HasPrefix(name, tempPrefix):
		return fmt.Errorf("%s name %q uses a reserved prefix", kind, name)
	}
	return nil
}
