package engine

import (
	"context"

	"github.com/factorylens/factorylens/internal/watcher"
)

// HandleChanges applies a debounced batch of watcher changes to the
// index: removed files lose their contributions, modified files are
// reindexed. Stops early on context cancellation.
func (e *Engine) HandleChanges(ctx context.Context, changes []watcher.Change) {
	for _, ch := range changes {
		if ctx.Err() != nil {
			return
		}
		switch ch.Kind {
		case watcher.Removed:
			e.RemoveFile(ch.Path)
		default:
			// ReindexFile only errors on cancellation.
			if err := e.ReindexFile(ctx, ch.Path); err != nil {
				return
			}
		}
	}
}
