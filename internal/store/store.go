// Package store implements the in-memory, TTL-based, file-attributed
// definition index. All mutating operations follow a single-writer
// discipline; reads take the same lock because lazy expiry mutates on
// read.
package store

import (
	"sync"
	"time"

	"github.com/factorylens/factorylens/internal/model"
)

const (
	// MinTTL is the floor applied to the configured TTL.
	MinTTL = time.Second
	// DefaultTTL is used when the caller passes a zero TTL.
	DefaultTTL = 10 * time.Minute
)

// entry wraps a cached value with its insertion time for expiry
// tracking.
type entry[T any] struct {
	value      T
	insertedAt time.Time
}

// fileIndex records which entities a file contributed, enabling
// targeted invalidation without a full rescan. It is bookkeeping owned
// exclusively by the store and never exposed to callers.
type fileIndex struct {
	lastModified time.Time
	factoryNames map[string]struct{}
	traitKeys    map[string]struct{}
}

func newFileIndex() *fileIndex {
	return &fileIndex{
		factoryNames: make(map[string]struct{}),
		traitKeys:    make(map[string]struct{}),
	}
}

// Store is the cache: two value caches (factories by name, traits by
// composite key) plus the per-file attribution index keeping them
// mutually consistent.
type Store struct {
	mu          sync.Mutex
	ttl         time.Duration
	factories   map[string]entry[*model.Factory]
	traits      map[string]entry[*model.Trait]
	files       map[string]*fileIndex
	initialized bool
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source. Tests use this to drive
// expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store with the given TTL, floor-clamped to MinTTL.
// A zero TTL selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Store {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	s := &Store{
		ttl:       ttl,
		factories: make(map[string]entry[*model.Factory]),
		traits:    make(map[string]entry[*model.Trait]),
		files:     make(map[string]*fileIndex),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertFactory inserts or replaces the factory by name (last write
// wins), refreshes its timestamp and records its file attribution.
func (s *Store) UpsertFactory(f *model.Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFactory(f)
}

// UpsertFactoryIfAbsent inserts the factory only when no live entry
// exists under its name. Returns true when the factory was inserted.
// This is the check-before-insert primitive for priority-ordered bulk
// loads, where the first definition across priority order wins.
func (s *Store) UpsertFactoryIfAbsent(f *model.Factory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveFactory(f.Name); ok {
		return false
	}
	s.putFactory(f)
	return true
}

// UpsertTrait inserts or replaces the trait by its composite key (last
// write wins), refreshes its timestamp and records its file attribution.
func (s *Store) UpsertTrait(t *model.Trait) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTrait(t)
}

// UpsertTraitIfAbsent inserts the trait only when no live entry exists
// under its key. Returns true when the trait was inserted.
func (s *Store) UpsertTraitIfAbsent(t *model.Trait) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveTrait(t.Key()); ok {
		return false
	}
	s.putTrait(t)
	return true
}

// GetFactory returns the cached factory if present and not expired.
// An expired entry is removed from internal storage as a side effect of
// the lookup (lazy expiry). Misses are not errors.
func (s *Store) GetFactory(name string) (*model.Factory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveFactory(name)
}

// GetTrait returns the cached trait for the factory/trait name pair if
// present and not expired, with the same lazy-expiry side effect as
// GetFactory.
func (s *Store) GetTrait(factoryName, name string) (*model.Trait, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveTrait(model.TraitKey(factoryName, name))
}

// RemoveFactory deletes the factory and cascades deletion of every
// trait whose FactoryName matches.
func (s *Store) RemoveFactory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropFactory(name)
	for key, e := range s.traits {
		if e.value.FactoryName == name {
			s.dropTrait(key)
		}
	}
}

// RemoveFileAttribution deletes every factory and trait this file
// previously contributed, then clears the file's index entry. Callers
// use it before re-indexing a changed file.
func (s *Store) RemoveFileAttribution(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFileAttributionLocked(fileID)
}

// ReplaceFileContents atomically (from the caller's point of view)
// removes the file's prior contributions and inserts the new entities,
// so no stale entry from an earlier version of the file survives an
// edit that removes a definition.
func (s *Store) ReplaceFileContents(fileID string, factories []*model.Factory, traits []*model.Trait) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeFileAttributionLocked(fileID)
	for _, f := range factories {
		s.putFactory(f)
	}
	for _, t := range traits {
		s.putTrait(t)
	}
}

// ShouldReindex returns true if the file is unseen or its on-disk
// modification time is newer than the recorded one.
func (s *Store) ShouldReindex(fileID string, currentModTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, ok := s.files[fileID]
	if !ok {
		return true
	}
	return currentModTime.After(fi.lastModified)
}

// MarkIndexed records the modification time the file was indexed at.
func (s *Store) MarkIndexed(fileID string, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, ok := s.files[fileID]
	if !ok {
		fi = newFileIndex()
		s.files[fileID] = fi
	}
	fi.lastModified = modTime
}

// CleanupExpiredEntries sweeps all caches, removing every entry older
// than the TTL. Independent of the lazy expiry performed on reads.
func (s *Store) CleanupExpiredEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for name, e := range s.factories {
		if now.Sub(e.insertedAt) > s.ttl {
			s.dropFactory(name)
		}
	}
	for key, e := range s.traits {
		if now.Sub(e.insertedAt) > s.ttl {
			s.dropTrait(key)
		}
	}
}

// ClearAll drops every cache and file index entry and resets the
// initialized flag.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.factories = make(map[string]entry[*model.Factory])
	s.traits = make(map[string]entry[*model.Trait])
	s.files = make(map[string]*fileIndex)
	s.initialized = false
}

// MarkInitialized records that an initial bulk load has completed.
func (s *Store) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	Factories   int
	Traits      int
	Files       int
	Initialized bool
	TTL         time.Duration
}

// GetStats returns current entry counts, the initialized flag and the
// effective TTL.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Factories:   len(s.factories),
		Traits:      len(s.traits),
		Files:       len(s.files),
		Initialized: s.initialized,
		TTL:         s.ttl,
	}
}
