// Package cache implements cardforge's generic LRU caching framework: a
// single Engine type parameterized over a pluggable Storage strategy,
// grounded on the teacher's internal/services/media/memcache.go
// (container/list + map, byte-budget eviction loop) but generalized from one
// byte-bounded instantiation into the reusable, strategy-backed engine the
// specification calls for.
package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls admission limits and persistence timing for an Engine.
// MaxEntries and MaxBytes are optional: nil means unlimited, while a
// pointer to zero is a real (if degenerate) limit that evicts every
// inserted entry immediately. A bare int/int64 could not distinguish
// "unset" from "explicitly zero", so both limits are pointers.
type Config struct {
	MaxEntries       *int
	MaxBytes         *int64
	EagerPersistence bool
}

// Stats summarizes the current state of an Engine for diagnostics.
type Stats struct {
	Count             int
	Bytes             int64
	OldestCreatedAt   time.Time
	NewestAccessedAt  time.Time
	StrategyName      string
}

// IntLimit returns a pointer to n, for populating Config.MaxEntries.
func IntLimit(n int) *int { return &n }

// ByteLimit returns a pointer to n, for populating Config.MaxBytes.
func ByteLimit(n int64) *int64 { return &n }

type node[K comparable, V any] struct {
	key   K
	entry Entry[V]
	size  int64
}

// Engine is a generic LRU cache over K -> V backed by a Storage[K, V]
// strategy. Reads that touch LastAccessedAt require the same write lock as
// writes, per the spec's deliberate single-writer-lock simplification.
type Engine[K comparable, V any] struct {
	mu      sync.Mutex
	cfg     Config
	storage Storage[K, V]
	log     *zap.Logger

	order   *list.List // front = most recently used
	index   map[K]*list.Element
	bytes   int64
}

// New constructs an Engine, invoking the strategy's Load. A load failure is
// logged and the engine starts empty; construction never fails.
func New[K comparable, V any](cfg Config, storage Storage[K, V], log *zap.Logger) *Engine[K, V] {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine[K, V]{
		cfg:     cfg,
		storage: storage,
		log:     log,
		order:   list.New(),
		index:   make(map[K]*list.Element),
	}

	loaded, err := storage.Load()
	if err != nil {
		log.Warn("cache load failed, starting empty", zap.String("strategy", storage.Name()), zap.Error(err))
		return e
	}

	for k, entry := range loaded {
		size := storage.EstimateSize(k, entry.Value)
		el := e.order.PushBack(&node[K, V]{key: k, entry: entry, size: size})
		e.index[k] = el
		e.bytes += size
	}
	return e
}

// Get returns the cached value for k and touches its LastAccessedAt, or
// reports a miss. Never fails.
func (e *Engine[K, V]) Get(k K) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.index[k]
	if !ok {
		var zero V
		return zero, false
	}

	n := el.Value.(*node[K, V])
	n.entry.LastAccessedAt = time.Now().UnixNano()
	e.order.MoveToFront(el)
	return n.entry.Value, true
}

// Insert admits (k, v), evicting LRU entries per the admission policy
// before storing. If EagerPersistence is set, Save is invoked after every
// successful insert and its error propagates to the caller.
func (e *Engine[K, V]) Insert(k K, v V) error {
	e.mu.Lock()

	size := e.storage.EstimateSize(k, v)
	now := time.Now().UnixNano()

	if existing, ok := e.index[k]; ok {
		n := existing.Value.(*node[K, V])
		e.bytes += size - n.size
		n.size = size
		n.entry.Value = v
		n.entry.LastAccessedAt = now
		e.order.MoveToFront(existing)
	} else {
		if e.cfg.MaxEntries != nil && len(e.index) >= *e.cfg.MaxEntries {
			e.evictLRULocked()
		}
		if e.cfg.MaxBytes != nil {
			for e.bytes+size > *e.cfg.MaxBytes && e.order.Len() > 0 {
				if !e.evictLRULocked() {
					break
				}
			}
		}
		entry := Entry[V]{Value: v, CreatedAt: now, LastAccessedAt: now}
		el := e.order.PushFront(&node[K, V]{key: k, entry: entry, size: size})
		e.index[k] = el
		e.bytes += size
		// An entry larger than the whole byte budget has already emptied the
		// cache above; it is evicted straight away, so a zero limit keeps
		// nothing.
		if e.cfg.MaxBytes != nil && size > *e.cfg.MaxBytes {
			e.evictLRULocked()
		}
	}

	eager := e.cfg.EagerPersistence
	var snapshot map[K]Entry[V]
	if eager {
		snapshot = e.snapshotLocked()
	}
	e.mu.Unlock()

	if eager {
		return e.storage.Save(snapshot)
	}
	return nil
}

// Evict removes k if present, running the strategy's eviction hook.
// Returns whether an entry was removed.
func (e *Engine[K, V]) Evict(k K) (bool, error) {
	e.mu.Lock()
	el, ok := e.index[k]
	if !ok {
		e.mu.Unlock()
		return false, nil
	}
	n := el.Value.(*node[K, V])
	value := n.entry.Value
	e.order.Remove(el)
	delete(e.index, k)
	e.bytes -= n.size
	e.mu.Unlock()

	if err := e.storage.OnEvict(k, value); err != nil {
		return true, err
	}
	return true, nil
}

// Clear evicts every entry and persists an empty state.
func (e *Engine[K, V]) Clear() error {
	e.mu.Lock()
	type kv struct {
		k K
		v V
	}
	all := make([]kv, 0, len(e.index))
	for k, el := range e.index {
		n := el.Value.(*node[K, V])
		all = append(all, kv{k: k, v: n.entry.Value})
	}
	e.order.Init()
	e.index = make(map[K]*list.Element)
	e.bytes = 0
	e.mu.Unlock()

	for _, item := range all {
		if err := e.storage.OnEvict(item.k, item.v); err != nil {
			return err
		}
	}
	return e.storage.Save(map[K]Entry[V]{})
}

// SaveToStorage persists the current state explicitly (used on shutdown
// when EagerPersistence is disabled).
func (e *Engine[K, V]) SaveToStorage() error {
	e.mu.Lock()
	snapshot := e.snapshotLocked()
	e.mu.Unlock()
	return e.storage.Save(snapshot)
}

// Stats reports the engine's current size and timestamp extremes.
func (e *Engine[K, V]) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{Count: len(e.index), Bytes: e.bytes, StrategyName: e.storage.Name()}
	var oldestCreated, newestAccessed int64
	first := true
	for _, el := range e.index {
		n := el.Value.(*node[K, V])
		if first {
			oldestCreated = n.entry.CreatedAt
			newestAccessed = n.entry.LastAccessedAt
			first = false
			continue
		}
		if n.entry.CreatedAt < oldestCreated {
			oldestCreated = n.entry.CreatedAt
		}
		if n.entry.LastAccessedAt > newestAccessed {
			newestAccessed = n.entry.LastAccessedAt
		}
	}
	if !first {
		s.OldestCreatedAt = time.Unix(0, oldestCreated)
		s.NewestAccessedAt = time.Unix(0, newestAccessed)
	}
	return s
}

// Contains reports whether k is present, without touching LastAccessedAt.
// Exposed for tests that assert membership without affecting eviction order.
func (e *Engine[K, V]) Contains(k K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.index[k]
	return ok
}

func (e *Engine[K, V]) evictLRULocked() bool {
	el := e.order.Back()
	if el == nil {
		return false
	}
	n := el.Value.(*node[K, V])
	e.order.Remove(el)
	delete(e.index, n.key)
	e.bytes -= n.size
	// Best-effort: eviction-hook errors during admission-driven eviction are
	// logged, not propagated, since they happen mid-Insert on a key the
	// caller never asked to remove. Explicit Evict() calls do propagate.
	if err := e.storage.OnEvict(n.key, n.entry.Value); err != nil {
		e.log.Warn("eviction hook failed during admission", zap.String("strategy", e.storage.Name()), zap.Error(err))
	}
	return true
}

func (e *Engine[K, V]) snapshotLocked() map[K]Entry[V] {
	snapshot := make(map[K]Entry[V], len(e.index))
	for k, el := range e.index {
		n := el.Value.(*node[K, V])
		snapshot[k] = n.entry
	}
	return snapshot
}
