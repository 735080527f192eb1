// Package storage holds captured scan images addressed by slash-separated keys.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// CleanKey canonicalizes key and rejects keys that escape the store root.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if k == "" {
		return "", ErrInvalidKey
	}
	k = path.Clean("/" + k)[1:]
	if k == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}
