package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opsradar-systems/opsradar/internal/config"
	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// NewSnapshotCmd creates the snapshot command with write and trend
// subcommands.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write and inspect daily KPI snapshots",
	}
	cmd.AddCommand(newSnapshotWriteCmd(), newSnapshotTrendCmd())
	return cmd
}

func newSnapshotWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write",
		Short: "Aggregate and persist today's KPI snapshots for all configured scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotWrite()
		},
	}
}

func runSnapshotWrite() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d, err := buildDeps(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer d.cleanup()

	agg := d.engine.Snapshotter()
	if agg == nil {
		return fmt.Errorf("snapshots are disabled in opsradar.yaml")
	}

	scopes := cfg.Snapshots.SnapshotScopes()
	written, err := agg.WriteAll(ctx, scopes, time.Now().UTC())
	if written > 0 {
		color.Green("  ✓ %d of %d scopes written", written, len(scopes))
	}
	if err != nil {
		return fmt.Errorf("writing snapshots: %w", err)
	}
	return nil
}

func newSnapshotTrendCmd() *cobra.Command {
	var brand, region string
	var days int

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show a scope's KPI trend over the trailing days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotTrend(types.Scope{Brand: brand, Region: region}, days)
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "Scope brand (empty for the global roll-up)")
	cmd.Flags().StringVar(&region, "region", "", "Scope region (empty for the global roll-up)")
	cmd.Flags().IntVar(&days, "days", 30, "Trailing window in days")
	return cmd
}

func runSnapshotTrend(scope types.Scope, days int) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	latest, err := st.LatestSnapshot(ctx, scope)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("No snapshots for this scope yet. Run: opsradar snapshot write")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading latest snapshot: %w", err)
	}

	trend, err := st.SnapshotTrend(ctx, scope, days)
	if err != nil {
		return fmt.Errorf("querying trend: %w", err)
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("KPI trend (%d days, latest %s):\n", days, latest.Date)
	for _, snap := range trend {
		fmt.Printf("  %s  orders=%-5d unpaid=%-4d same-day=%-5d revenue=%s\n",
			snap.Date, snap.TotalOrders, snap.UnpaidOrders,
			snap.SameDayDeliveries, snap.Revenue.StringFixed(2))
	}
	return nil
}
