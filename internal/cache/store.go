package cache

import (
	"context"
	"fmt"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// Store holds the per-file annotation cache record. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, file string) (*models.CacheEntry, bool, error)
	Put(ctx context.Context, file string, entry *models.CacheEntry) error
	Delete(ctx context.Context, file string) error
	Clear(ctx context.Context) error
	Close() error
}

// CacheKey generates a standardized cache key
// Format: "prefix:file_path", e.g. "annotate:/repo/src/main.go"
func CacheKey(prefix, filePath string) string {
	return fmt.Sprintf("%s:%s", prefix, filePath)
}

// AnnotationKey is the cache key of a file's annotation record
func AnnotationKey(filePath string) string {
	return CacheKey("annotate", filePath)
}

// Lister is implemented by stores that can enumerate their files
type Lister interface {
	Files(ctx context.Context) ([]string, error)
}

// HealthChecker is implemented by stores backed by a remote service
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
