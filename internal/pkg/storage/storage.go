package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid storage key")

type FileStorage interface {
	// Upload stores the content under key and returns the stored key
	Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error)

	// Delete removes an object; a missing object is not an error
	Delete(ctx context.Context, key string) error

	// URL returns the public URL of a stored key
	URL(key string) string

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

// CleanKey normalises key to a relative slash path and rejects keys that
// escape the storage root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
