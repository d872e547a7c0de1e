package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opsradar-systems/opsradar/internal/config"
	"github.com/opsradar-systems/opsradar/internal/runlock"
	"github.com/opsradar-systems/opsradar/internal/scan"
	"github.com/opsradar-systems/opsradar/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the opsradar HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()
	ctx := context.Background()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.cleanup()

	if d.locker != nil {
		if err := d.locker.Ping(ctx); err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
	}

	srv := server.New(cfg.Server, d.store, d.engine, logger)

	// Periodic scan loop
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	loopDone := make(chan struct{})
	if interval := cfg.Scan.IntervalDuration(); interval > 0 {
		go scanLoop(loopCtx, d.engine, d.locker, interval, cfg.Scan.BudgetDuration(), logger, loopDone)
		logger.Info("scan loop started", "interval", interval)
	} else {
		close(loopDone)
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		stopLoop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		select {
		case <-loopDone:
		case <-shutdownCtx.Done():
		}
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}

// scanLoop runs the engine on a fixed interval until ctx is cancelled. When a
// locker is set, replicas race for the run lock and losers skip the tick.
func scanLoop(ctx context.Context, eng *scan.Engine, locker *runlock.Locker, interval, budget time.Duration, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if locker != nil {
			acquired, err := locker.Acquire(ctx, budget)
			if err != nil {
				logger.Error("run lock acquire failed", "error", err)
				continue
			}
			if !acquired {
				logger.Info("run lock held elsewhere, skipping scan tick")
				continue
			}
		}

		result, err := eng.Run(ctx)
		if err != nil {
			logger.Error("scheduled scan failed", "error", err)
		} else {
			logger.Info("scheduled scan finished",
				"created", result.AlertsCreated,
				"duplicates", result.Duplicates,
				"errors", len(result.Errors),
			)
		}

		if locker != nil {
			if err := locker.Release(ctx); err != nil {
				logger.Warn("run lock release failed", "error", err)
			}
		}
	}
}
