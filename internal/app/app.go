// Package app provides the top-level application lifecycle for the scanner.
// It wires the data fabric, strategies, and validation engine from
// configuration and runs scans.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyoungcy/arbscan/internal/config"
	"github.com/alanyoungcy/arbscan/internal/domain"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, executes one scan, persists and archives the
// report where configured, and writes the report JSON to stdout.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if deps.Feed != nil {
		feedCtx, cancelFeed := context.WithCancel(ctx)
		defer cancelFeed()
		go func() {
			if err := deps.Feed.Run(feedCtx); err != nil && feedCtx.Err() == nil {
				a.logger.Warn("book feed stopped", slog.String("error", err.Error()))
			}
		}()
	}

	report, err := deps.Orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}

	a.persist(ctx, deps, report)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("app: encode report: %w", err)
	}
	return nil
}

// persist stores and archives the report on a best-effort basis: a dead
// database or bucket degrades durability, not the scan itself.
func (a *App) persist(ctx context.Context, deps *Deps, report *domain.ScanReport) {
	if deps.Store != nil {
		if err := deps.Store.SaveReport(ctx, report); err != nil {
			a.logger.Warn("report persistence failed", slog.String("error", err.Error()))
		}
	}
	if deps.Archiver != nil {
		if err := deps.Archiver.Archive(ctx, report); err != nil {
			a.logger.Warn("report archival failed", slog.String("error", err.Error()))
		}
	}
}

// Close runs all registered cleanup functions in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
