package cli

import (
	"fmt"
	"log/slog"

	"github.com/factorylens/factorylens/internal/config"
	"github.com/factorylens/factorylens/internal/engine"
	"github.com/factorylens/factorylens/internal/files"
	"github.com/factorylens/factorylens/internal/notify"
)

// buildEngine loads configuration for the project root and assembles an
// engine over the real filesystem.
func buildEngine(rootDir string) (*engine.Engine, *config.Config, error) {
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	fsys := files.NewOS(rootDir, cfg.Paths.Ignore)
	notifier := notify.NewSlogNotifier(slog.Default())

	return engine.New(cfg, fsys, notifier), cfg, nil
}
