package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// MemoryStore keeps annotation records in process memory with expiry
type MemoryStore struct {
	logger   *logrus.Logger
	memCache *cache.Cache
}

// NewMemoryStore creates an in-memory store. ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration, logger *logrus.Logger) *MemoryStore {
	expiration := ttl
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	return &MemoryStore{
		logger:   logger,
		memCache: cache.New(expiration, 10*time.Minute),
	}
}

func (m *MemoryStore) Get(ctx context.Context, file string) (*models.CacheEntry, bool, error) {
	cached, found := m.memCache.Get(AnnotationKey(file))
	if !found {
		return nil, false, nil
	}
	return cached.(*models.CacheEntry), true, nil
}

func (m *MemoryStore) Put(ctx context.Context, file string, entry *models.CacheEntry) error {
	m.memCache.Set(AnnotationKey(file), entry, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, file string) error {
	m.memCache.Delete(AnnotationKey(file))
	return nil
}

// Clear clears the memory cache
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.logger.Debug("Clearing memory cache")
	m.memCache.Flush()
	return nil
}

// Len returns the number of live entries
func (m *MemoryStore) Len() int {
	return m.memCache.ItemCount()
}

func (m *MemoryStore) Close() error { return nil }

// Files lists the files currently held in memory
func (m *MemoryStore) Files(ctx context.Context) ([]string, error) {
	items := m.memCache.Items()
	files := make([]string, 0, len(items))
	for key := range items {
		files = append(files, strings.TrimPrefix(key, AnnotationKey("")))
	}
	sort.Strings(files)
	return files, nil
}
