// Package snapshot computes and persists daily KPI roll-ups. Aggregation is
// delegated to a Source so the numbers come from single aggregate queries over
// the operational data rather than row fetches.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsradar-systems/opsradar/internal/metrics"
	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Source computes the KPI figures for one scope and day.
type Source interface {
	Aggregate(ctx context.Context, scope types.Scope, day time.Time) (types.KpiSnapshot, error)
}

// Aggregator writes daily KPI snapshots through the store.
type Aggregator struct {
	source Source
	store  store.Store
	logger *slog.Logger
}

// New creates an Aggregator. A nil logger falls back to slog.Default.
func New(source Source, st store.Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, store: st, logger: logger}
}

// WriteSnapshot aggregates one scope for the given day and upserts the row.
// Rerunning on the same day overwrites, so a snapshot is always the latest
// computation for its date.
func (a *Aggregator) WriteSnapshot(ctx context.Context, scope types.Scope, day time.Time) (types.KpiSnapshot, error) {
	snap, err := a.source.Aggregate(ctx, scope, day)
	if err != nil {
		return types.KpiSnapshot{}, fmt.Errorf("aggregate %s: %w", scope, err)
	}
	if err := a.store.UpsertSnapshot(ctx, snap); err != nil {
		return types.KpiSnapshot{}, fmt.Errorf("write snapshot %s: %w", scope, err)
	}
	metrics.SnapshotsWritten.Add(1)
	a.logger.Debug("kpi snapshot written", "scope", scope.String(), "date", snap.Date)
	return snap, nil
}

// WriteAll writes one snapshot per scope concurrently and returns how many
// succeeded. Scope failures are independent: the first error is returned after
// all scopes have been attempted.
func (a *Aggregator) WriteAll(ctx context.Context, scopes []types.Scope, day time.Time) (int, error) {
	// Plain errgroup, not WithContext: one scope failing must not cancel the
	// others mid-write.
	var g errgroup.Group
	g.SetLimit(4)

	written := make([]bool, len(scopes))
	for n, scope := range scopes {
		g.Go(func() error {
			if _, err := a.WriteSnapshot(ctx, scope, day); err != nil {
				a.logger.Error("snapshot scope failed", "scope", scope.String(), "error", err)
				return err
			}
			written[n] = true
			return nil
		})
	}

	err := g.Wait()
	count := 0
	for _, ok := range written {
		if ok {
			count++
		}
	}
	return count, err
}

// Trend returns the stored snapshots for a scope over the trailing N days.
func (a *Aggregator) Trend(ctx context.Context, scope types.Scope, days int) ([]types.KpiSnapshot, error) {
	return a.store.SnapshotTrend(ctx, scope, days)
}
