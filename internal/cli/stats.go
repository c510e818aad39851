package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Build the index and print its statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	eng, cfg, err := buildEngine(rootDir)
	if err != nil {
		return err
	}

	stats, err := eng.Initialize(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("Factories:   %d\n", stats.Factories)
	fmt.Printf("Traits:      %d\n", stats.Traits)
	fmt.Printf("Files:       %d\n", stats.Files)
	fmt.Printf("Initialized: %t\n", stats.Initialized)
	fmt.Printf("TTL:         %s\n", stats.TTL)
	fmt.Printf("Patterns:    %v\n", cfg.Paths.Patterns)
	return nil
}
