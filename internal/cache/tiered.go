package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// TieredStore puts a memory store in front of a persistent one
type TieredStore struct {
	front  *MemoryStore
	back   Store
	logger *logrus.Logger
}

// NewTieredStore layers front over back
func NewTieredStore(front *MemoryStore, back Store, logger *logrus.Logger) *TieredStore {
	return &TieredStore{front: front, back: back, logger: logger}
}

func (t *TieredStore) Get(ctx context.Context, file string) (*models.CacheEntry, bool, error) {
	if entry, ok, _ := t.front.Get(ctx, file); ok {
		return entry, true, nil
	}

	entry, ok, err := t.back.Get(ctx, file)
	if err != nil || !ok {
		return nil, false, err
	}
	t.front.Put(ctx, file, entry)
	return entry, true, nil
}

// Put writes through to both tiers. The memory tier is kept even if the
// persistent write fails so this process still benefits.
func (t *TieredStore) Put(ctx context.Context, file string, entry *models.CacheEntry) error {
	t.front.Put(ctx, file, entry)
	return t.back.Put(ctx, file, entry)
}

func (t *TieredStore) Delete(ctx context.Context, file string) error {
	t.front.Delete(ctx, file)
	return t.back.Delete(ctx, file)
}

func (t *TieredStore) Clear(ctx context.Context) error {
	t.front.Clear(ctx)
	return t.back.Clear(ctx)
}

func (t *TieredStore) Close() error {
	return t.back.Close()
}

// Files lists the persistent tier's files, or nil when it cannot enumerate them
func (t *TieredStore) Files(ctx context.Context) ([]string, error) {
	if l, ok := t.back.(Lister); ok {
		return l.Files(ctx)
	}
	return nil, nil
}

// HealthCheck checks the persistent tier when it is remote
func (t *TieredStore) HealthCheck(ctx context.Context) error {
	if h, ok := t.back.(HealthChecker); ok {
		return h.HealthCheck(ctx)
	}
	return nil
}
