package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/factorylens/factorylens/internal/watcher"
)

// sweepInterval is how often expired cache entries are swept while
// watching.
const sweepInterval = time.Minute

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index and keep the index current as files change",
	Long: `Watch builds the index, then watches the project for definition file
changes and reindexes changed files incrementally until interrupted.
`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping watch...")
		cancel()
	}()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(rootDir)
	if err != nil {
		return err
	}

	w, err := watcher.New([]string{rootDir}, []string{".rb"}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()

	// Changes arriving during the initial build are held back until it
	// finishes, then applied in one debounced batch.
	w.Pause()
	if err := w.Start(ctx, func(changes []watcher.Change) {
		eng.HandleChanges(ctx, changes)
		for _, ch := range changes {
			slog.Debug("applied change", slog.String("file", ch.Path), slog.String("kind", ch.Kind.String()))
		}
	}); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	stats, err := eng.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initial indexing failed: %w", err)
	}
	fmt.Printf("Indexed %d factories and %d traits from %d files; watching for changes\n",
		stats.Factories, stats.Traits, stats.Files)
	w.Resume()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			eng.Cleanup()
		}
	}
}
