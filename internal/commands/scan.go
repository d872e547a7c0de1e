package commands

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opsradar-systems/opsradar/internal/config"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one risk scan and report the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan()
		},
	}
}

func runScan() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scan.BudgetDuration()+30*time.Second)
	defer cancel()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.cleanup()

	if d.locker != nil {
		acquired, err := d.locker.Acquire(ctx, cfg.Scan.BudgetDuration())
		if err != nil {
			return fmt.Errorf("acquiring run lock: %w", err)
		}
		if !acquired {
			color.Yellow("Another scan holds the run lock, skipping")
			return nil
		}
		defer func() { _ = d.locker.Release(context.Background()) }()
	}

	result, err := d.engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printScanResult(result)
	return nil
}

func printScanResult(result types.ScanResult) {
	bold := color.New(color.Bold)
	_, _ = bold.Println("Scan finished")
	fmt.Printf("  Duration:   %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Printf("  Created:    %s\n", color.GreenString("%d", result.AlertsCreated))
	fmt.Printf("  Duplicates: %d\n", result.Duplicates)
	if result.Dropped > 0 {
		fmt.Printf("  Dropped:    %s\n", color.YellowString("%d", result.Dropped))
	}
	if result.SnapshotsWritten > 0 {
		fmt.Printf("  Snapshots:  %d\n", result.SnapshotsWritten)
	}
	if result.BudgetExceeded {
		color.Yellow("  Scan budget exceeded, results are partial")
	}
	for _, detErr := range result.Errors {
		color.Red("  ✗ %s", detErr.Error())
	}
}
