package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// MemoryStore keeps markers in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	markers map[string][]models.MarkerSpec

	// FailCreate, when set, is consulted before every Create
	FailCreate func(models.MarkerSpec) error
}

// NewMemoryStore creates an empty in-memory marker store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[string][]models.MarkerSpec)}
}

// Update stages changes on a copy and swaps it in only if fn succeeds
func (s *MemoryStore) Update(ctx context.Context, file string, fn func(tx MarkerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := &memoryTx{
		markers:    append([]models.MarkerSpec(nil), s.markers[file]...),
		failCreate: s.FailCreate,
	}
	if err := fn(staged); err != nil {
		return err
	}

	if len(staged.markers) == 0 {
		delete(s.markers, file)
	} else {
		s.markers[file] = staged.markers
	}
	return nil
}

// List returns a copy of the file's markers ordered by start offset
func (s *MemoryStore) List(ctx context.Context, file string) ([]models.MarkerSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.MarkerSpec(nil), s.markers[file]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Files returns every file that has markers
func (s *MemoryStore) Files(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.markers))
	for f := range s.markers {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryTx struct {
	markers    []models.MarkerSpec
	failCreate func(models.MarkerSpec) error
}

func (t *memoryTx) DeleteKinds(kinds ...models.MarkerKind) error {
	drop := make(map[models.MarkerKind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	kept := t.markers[:0]
	for _, m := range t.markers {
		if !drop[m.Kind] {
			kept = append(kept, m)
		}
	}
	t.markers = kept
	return nil
}

func (t *memoryTx) Create(m models.MarkerSpec) error {
	if m.End < m.Start {
		return fmt.Errorf("marker range [%d, %d) is inverted", m.Start, m.End)
	}
	if t.failCreate != nil {
		if err := t.failCreate(m); err != nil {
			return err
		}
	}
	t.markers = append(t.markers, m)
	return nil
}
