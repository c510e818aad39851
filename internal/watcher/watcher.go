// Package watcher implements the change-watching collaborator: a
// debounced recursive filesystem watcher delivering per-file change
// kinds to a callback.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies a watched file change.
type ChangeKind int

const (
	// Modified covers both newly created and rewritten files.
	Modified ChangeKind = iota
	// Removed covers deleted and renamed-away files.
	Removed
)

func (k ChangeKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "modified"
}

// Change is one debounced file change.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher watches directories for definition file changes.
type Watcher interface {
	// Start begins watching. The callback receives the accumulated
	// changes after each debounce window.
	Start(ctx context.Context, callback func(changes []Change)) error

	// Stop stops watching. Idempotent.
	Stop() error

	// Pause stops firing callbacks but keeps accumulating changes.
	Pause()

	// Resume resumes callbacks; accumulated changes fire immediately.
	Resume()
}

// fileWatcher implements Watcher on fsnotify.
type fileWatcher struct {
	watcher      *fsnotify.Watcher
	extensions   map[string]bool
	debounceTime time.Duration
	callback     func(changes []Change)
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	paused   bool
	pausedMu sync.RWMutex

	accumulated   map[string]ChangeKind
	accumulatedMu sync.Mutex

	debounceTimer *time.Timer
	timerMu       sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a watcher over the given directories (watched
// recursively) for files with the given extensions (e.g. ".rb").
func New(dirs []string, extensions []string, logger *slog.Logger) (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[ext] = true
	}

	fw := &fileWatcher{
		watcher:      w,
		extensions:   extMap,
		debounceTime: 500 * time.Millisecond,
		logger:       logger,
		accumulated:  make(map[string]ChangeKind),
		doneCh:       make(chan struct{}),
	}

	for _, dir := range dirs {
		if err := fw.addDirectoriesRecursively(dir); err != nil {
			w.Close()
			return nil, err
		}
	}

	return fw, nil
}

func (fw *fileWatcher) Start(ctx context.Context, callback func(changes []Change)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			// Never started.
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flushAccumulated()
	}
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	fireCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories get watched too.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						fw.logger.Warn("failed to watch new directory",
							slog.String("dir", event.Name), slog.String("error", err.Error()))
					}
				}
			}

			kind, relevant := classify(event)
			if !relevant || !fw.extensions[filepath.Ext(event.Name)] {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = kind
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(fireCh)

		case <-fireCh:
			fw.handleDebounceExpired()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// classify maps an fsnotify op to a change kind. Later events for the
// same path within one debounce window overwrite earlier ones, so a
// create-then-delete ends up as Removed.
func classify(event fsnotify.Event) (ChangeKind, bool) {
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Removed, true
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		return Modified, true
	default:
		return Modified, false
	}
}

func (fw *fileWatcher) handleDebounceExpired() {
	fw.pausedMu.RLock()
	paused := fw.paused
	fw.pausedMu.RUnlock()

	if paused {
		// Keep accumulating until Resume.
		return
	}
	fw.flushAccumulated()
}

// flushAccumulated fires the callback with all accumulated changes.
func (fw *fileWatcher) flushAccumulated() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}
	changes := make([]Change, 0, len(fw.accumulated))
	for path, kind := range fw.accumulated {
		changes = append(changes, Change{Path: path, Kind: kind})
	}
	fw.accumulated = make(map[string]ChangeKind)
	fw.accumulatedMu.Unlock()

	if fw.callback != nil {
		fw.callback(changes)
	}
}

// resetDebounceTimer resets the debounce timer, stopping and draining
// the old one.
func (fw *fileWatcher) resetDebounceTimer(fireCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		if !fw.debounceTimer.Stop() {
			select {
			case <-fw.debounceTimer.C:
			default:
			}
		}
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// addDirectoriesRecursively adds all directories in the tree to the
// watcher. Unreadable subdirectories are skipped with a warning.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			fw.logger.Warn("error accessing path",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("failed to watch directory",
				slog.String("dir", path), slog.String("error", err.Error()))
		}
		return nil
	})
}
