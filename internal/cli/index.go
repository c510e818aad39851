package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var quietFlag bool

// indexCmd represents the index command.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the factory definition index",
	Long: `Index discovers factory definition files, parses them and populates
the in-memory index, then prints a summary.

Files are applied in priority order: when two files define a factory
with the same name, the definition from the earlier file wins.

Examples:
  # Index the current directory
  factorylens index

  # Index another project
  factorylens index --root /path/to/project

  # Suppress the progress bar
  factorylens index --quiet
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals gracefully.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling indexing...")
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

	if !quietFlag {
		var bar *progressbar.ProgressBar
		eng.SetProgressFunc(func(fileID string, done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Indexing files"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
				)
			}
			bar.Set(done)
		})
	}

	stats, err := eng.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if !quietFlag {
		fmt.Println()
	}
	fmt.Printf("Indexed %d factories and %d traits from %d files\n",
		stats.Factories, stats.Traits, stats.Files)
	return nil
}
