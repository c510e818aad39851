// Package engine orchestrates the extractor, the cache store and the
// resolver: it discovers definition files, populates the index, keeps
// it current as files change, and answers reference queries.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/factorylens/factorylens/internal/config"
	"github.com/factorylens/factorylens/internal/files"
	"github.com/factorylens/factorylens/internal/model"
	"github.com/factorylens/factorylens/internal/notify"
	"github.com/factorylens/factorylens/internal/parser"
	"github.com/factorylens/factorylens/internal/pattern"
	"github.com/factorylens/factorylens/internal/resolver"
	"github.com/factorylens/factorylens/internal/store"
)

// Engine owns the index lifecycle. All mutating operations funnel
// through it, satisfying the store's single-writer discipline.
type Engine struct {
	cfg       *config.Config
	fs        files.FS
	store     *store.Store
	extractor *parser.Extractor
	resolver  *resolver.Resolver
	notifier  notify.Notifier

	// initGroup coalesces concurrent full initializations so one
	// run's clear can never race another run's pending writes.
	initGroup singleflight.Group

	// hashes lets a reindex skip reparsing when only the mtime
	// drifted but the content did not.
	hashesMu sync.Mutex
	hashes   map[string]uint64

	// onFileIndexed, when set, observes bulk-load progress.
	onFileIndexed func(fileID string, done, total int)
}

// SetProgressFunc installs a bulk-load progress observer. Must be set
// before Initialize is called.
func (e *Engine) SetProgressFunc(fn func(fileID string, done, total int)) {
	e.onFileIndexed = fn
}

// New creates an engine from configuration and collaborators. A broken
// call-identifier list is reported at error level and leaves the
// resolver matching nothing; indexing still works.
func New(cfg *config.Config, fsys files.FS, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Discard
	}

	st := store.New(time.Duration(cfg.Cache.TTLSeconds) * time.Second)

	lib, err := pattern.NewLibrary(cfg.Resolver.CallIdentifiers)
	if err != nil {
		notify.Errorf(notifier, "engine",
			"failed to build call-site matcher, reference resolution disabled", err)
		lib = nil
	}

	return &Engine{
		cfg:       cfg,
		fs:        fsys,
		store:     st,
		extractor: parser.NewExtractor(fsys, notifier, cfg.Indexing.BatchSize),
		resolver:  resolver.New(lib, st),
		notifier:  notifier,
		hashes:    make(map[string]uint64),
	}
}

// Store exposes the underlying cache store for read-side consumers.
func (e *Engine) Store() *store.Store {
	return e.store
}

// DiscoverFiles returns definition files in priority order: files of an
// earlier pattern precede files of a later one, duplicates keep their
// first position.
func (e *Engine) DiscoverFiles() ([]string, error) {
	seen := make(map[string]struct{})
	ordered := []string{}

	for _, pat := range e.cfg.PriorityPatterns() {
		matched, err := e.fs.ListFiles([]string{pat})
		if err != nil {
			return nil, fmt.Errorf("failed to list files for pattern %s: %w", pat, err)
		}
		for _, f := range matched {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			ordered = append(ordered, f)
		}
	}

	return ordered, nil
}

// Initialize performs a full build of the index: discover files, parse
// them in bounded concurrent batches, then apply the results in
// priority order with first-wins semantics. Concurrent calls coalesce
// into a single run. Returns the store stats after the load.
func (e *Engine) Initialize(ctx context.Context) (store.Stats, error) {
	v, err, _ := e.initGroup.Do("initialize", func() (any, error) {
		return e.initialize(ctx)
	})
	if err != nil {
		return store.Stats{}, err
	}
	return v.(store.Stats), nil
}

func (e *Engine) initialize(ctx context.Context) (store.Stats, error) {
	fileIDs, err := e.DiscoverFiles()
	if err != nil {
		return store.Stats{}, err
	}

	// Parse before clearing so a failed batch cannot leave the store
	// empty for longer than necessary.
	results, err := e.extractor.ParseFilesByID(ctx, fileIDs)
	if err != nil {
		return store.Stats{}, err
	}

	e.store.ClearAll()
	e.clearHashes()

	// Apply in priority order: the first definition of a name across
	// the ordered file list wins. This is deliberately different from
	// the unconditional overwrite used for live single-file updates.
	for i, fileID := range fileIDs {
		res := results[fileID]
		if res == nil {
			continue
		}
		for _, f := range res.Factories {
			e.store.UpsertFactoryIfAbsent(f)
		}
		for _, t := range res.Traits {
			e.store.UpsertTraitIfAbsent(t)
		}
		e.recordIndexed(fileID)
		if e.onFileIndexed != nil {
			e.onFileIndexed(fileID, i+1, len(fileIDs))
		}
	}

	e.store.MarkInitialized()
	return e.store.GetStats(), nil
}

// ReindexFile re-parses a single changed file and replaces its
// contributions in the store (freshness wins). A vanished file has its
// attribution removed. Skips work when the recorded mtime is current or
// the content hash shows pure mtime drift.
func (e *Engine) ReindexFile(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	modTime, err := e.fs.ModTime(fileID)
	if err != nil {
		// Deleted (or unreadable) mid-scan: drop its contributions.
		e.RemoveFile(fileID)
		return nil
	}

	if !e.store.ShouldReindex(fileID, modTime) {
		return nil
	}

	text, err := e.fs.ReadFile(fileID)
	if err != nil {
		notify.Warnf(e.notifier, "engine",
			fmt.Sprintf("failed to read %s, keeping previous index state", fileID), err)
		return nil
	}

	if e.contentUnchanged(fileID, text) {
		// Pure mtime drift; refresh bookkeeping only.
		e.store.MarkIndexed(fileID, modTime)
		return nil
	}

	result := parser.ParseText(text, fileID)
	e.store.ReplaceFileContents(fileID, result.Factories, result.Traits)
	e.store.MarkIndexed(fileID, modTime)
	e.recordHash(fileID, text)
	return nil
}

// RemoveFile drops a file's contributions from the index.
func (e *Engine) RemoveFile(fileID string) {
	e.store.RemoveFileAttribution(fileID)
	e.forgetHash(fileID)
}

// ResolveDocument resolves call-site references in the given text
// against the current index.
func (e *Engine) ResolveDocument(text string) []model.Reference {
	return e.resolver.ResolveReferences(text)
}

// Cleanup sweeps expired entries out of the store.
func (e *Engine) Cleanup() {
	e.store.CleanupExpiredEntries()
}

// Stats returns the current store statistics.
func (e *Engine) Stats() store.Stats {
	return e.store.GetStats()
}

// contentUnchanged reports whether the file's content hash matches the
// recorded one.
func (e *Engine) contentUnchanged(fileID, text string) bool {
	e.hashesMu.Lock()
	defer e.hashesMu.Unlock()
	h, ok := e.hashes[fileID]
	return ok && h == xxhash.Sum64String(text)
}

func (e *Engine) recordHash(fileID, text string) {
	e.hashesMu.Lock()
	defer e.hashesMu.Unlock()
	e.hashes[fileID] = xxhash.Sum64String(text)
}

// recordIndexed records mtime and content hash for a freshly indexed
// file; failures here only cost a redundant reparse later.
func (e *Engine) recordIndexed(fileID string) {
	if modTime, err := e.fs.ModTime(fileID); err == nil {
		e.store.MarkIndexed(fileID, modTime)
	}
	if text, err := e.fs.ReadFile(fileID); err == nil {
		e.recordHash(fileID, text)
	}
}

func (e *Engine) forgetHash(fileID string) {
	e.hashesMu.Lock()
	defer e.hashesMu.Unlock()
	delete(e.hashes, fileID)
}

func (e *Engine) clearHashes() {
	e.hashesMu.Lock()
	defer e.hashesMu.Unlock()
	e.hashes = make(map[string]uint64)
}
