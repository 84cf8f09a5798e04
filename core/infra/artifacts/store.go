package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const pointerPrefix = "blob://"

// ErrNotFound reports a pointer with no stored blob.
var ErrNotFound = errors.New("blob not found")

// Metadata describes a stored blob.
type Metadata struct {
	ContentType string            `json:"content_type,omitempty"`
	SizeBytes   int64             `json:"size_bytes"`
	Encoding    Encoding          `json:"encoding"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Store keeps opaque content blobs addressed by pointer.
type Store interface {
	Put(ctx context.Context, content []byte, meta Metadata) (string, error)
	Get(ctx context.Context, ptr string) ([]byte, Metadata, error)
	Delete(ctx context.Context, ptr string) error
}

// PointerFor returns the pointer for a blob id.
func PointerFor(id string) string {
	return pointerPrefix + id
}

// IDFromPointer extracts the blob id from a pointer.
func IDFromPointer(ptr string) (string, error) {
	if !strings.HasPrefix(ptr, pointerPrefix) {
		return "", fmt.Errorf("invalid blob pointer %q", ptr)
	}
	id := strings.TrimPrefix(ptr, pointerPrefix)
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("invalid blob pointer %q", ptr)
	}
	return id, nil
}
