package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNotFound is returned by Open when nothing is stored under the key.
	ErrNotFound = errors.New("object not found")
)

// ObjectStore saves and retrieves binary objects by key.
type ObjectStore interface {
	Put(ctx context.Context, storageKey, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// CleanKey normalizes a slash-separated key and rejects traversal.
func CleanKey(storageKey string) (string, error) {
	raw := strings.TrimSpace(storageKey)
	if raw == "" || strings.Contains(raw, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + raw)[1:]
	if clean == "" || clean != strings.TrimPrefix(raw, "/") || strings.Contains(raw, "..") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
