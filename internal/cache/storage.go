package cache

import "github.com/cardforge/cardforge/internal/cferr"

// Entry pairs a cached value with its lifecycle timestamps. LastAccessedAt
// is the sole eviction sort key and is touched on every successful Get.
type Entry[V any] struct {
	Value          V
	CreatedAt      int64 // unix nanos
	LastAccessedAt int64 // unix nanos
}

// Storage is the pluggable persistence strategy behind an Engine. Every
// method must be safe to call without the Engine's own lock held, since the
// Engine never performs I/O while holding its write lock.
type Storage[K comparable, V any] interface {
	// Load reconstructs persisted state. A failure here is never fatal to
	// the caller: Engine treats it as "start empty" and logs a warning.
	Load() (map[K]Entry[V], error)

	// Save persists the entire current entry set, replacing whatever was
	// there before.
	Save(entries map[K]Entry[V]) error

	// EstimateSize returns the admission-policy weight of storing (k, v).
	EstimateSize(k K, v V) int64

	// SizeEstimate returns the constant or representative per-entry size
	// used for O(1) accounting.
	SizeEstimate() int64

	// OnEvict performs any side effect required to finish evicting (k, v),
	// such as deleting a backing file.
	OnEvict(k K, v V) error

	// Name returns a diagnostic label for this strategy.
	Name() string
}

// wrapIoErr is a small helper shared by storage implementations to keep
// error-kind tagging consistent.
func wrapIoErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cferr.IoErr(err, format, args...)
}
