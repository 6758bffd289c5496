package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore is the contract the document pipeline depends on. Keys are
// generated by the store; Delete is idempotent so compensation paths can
// call it without checking existence first.
type BlobStore interface {
	Put(ctx context.Context, data []byte, originalName string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NewKey builds a collision-resistant object key: nanosecond timestamp,
// random UUID, and the sanitized extension of the original name.
func NewKey(originalName string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), safeExt(originalName))
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// validateKey rejects anything that could escape the store's namespace.
// Keys are opaque to callers but only ever come from NewKey.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty storage key")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("malformed storage key %q", key)
	}
	return nil
}
