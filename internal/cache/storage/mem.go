package storage

import (
	"sync"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/cferr"
)

// MemStorage is an in-memory Storage test double with forced-failure flags,
// used exclusively to verify Engine invariants without touching disk, per
// spec.md §4.B's "In-memory storage (test double)" paragraph.
type MemStorage[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]cache.Entry[V]

	LoadCalls   int
	SaveCalls   int
	EvictCalls  int
	FailLoad    bool
	FailSave    bool
	FailOnEvict bool

	SizeEstimateValue int64
}

// NewMemStorage returns an empty MemStorage with the given constant size
// estimate.
func NewMemStorage[K comparable, V any](sizeEstimate int64) *MemStorage[K, V] {
	return &MemStorage[K, V]{data: make(map[K]cache.Entry[V]), SizeEstimateValue: sizeEstimate}
}

// Seed preloads an entry, bypassing the normal Save path — useful for
// constructing pre-populated fixtures in tests.
func (m *MemStorage[K, V]) Seed(k K, e cache.Entry[V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[k] = e
}

func (m *MemStorage[K, V]) Load() (map[K]cache.Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.FailLoad {
		return nil, cferr.CacheErr(nil, "forced load failure")
	}
	out := make(map[K]cache.Entry[V], len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *MemStorage[K, V]) Save(entries map[K]cache.Entry[V]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.FailSave {
		return cferr.CacheErr(nil, "forced save failure")
	}
	m.data = make(map[K]cache.Entry[V], len(entries))
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func (m *MemStorage[K, V]) EstimateSize(_ K, _ V) int64 { return m.SizeEstimateValue }

func (m *MemStorage[K, V]) SizeEstimate() int64 { return m.SizeEstimateValue }

func (m *MemStorage[K, V]) OnEvict(_ K, _ V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EvictCalls++
	if m.FailOnEvict {
		return cferr.CacheErr(nil, "forced evict failure")
	}
	return nil
}

func (m *MemStorage[K, V]) Name() string { return "MemStorage" }
