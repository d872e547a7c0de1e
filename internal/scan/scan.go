// Package scan orchestrates one detection run: snapshot the activity feed,
// fan detectors out over it, normalize their findings, and persist the scored
// insights. A scan is a pure batch over the snapshot; it never mutates
// operational data.
package scan

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/internal/detector"
	"github.com/opsradar-systems/opsradar/internal/metrics"
	"github.com/opsradar-systems/opsradar/internal/scorer"
	"github.com/opsradar-systems/opsradar/internal/snapshot"
	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Engine runs scans against one activity feed and store.
type Engine struct {
	feed      activity.Feed
	store     store.Store
	detectors []detector.Detector
	scanCfg   types.ScanConfig
	detCfg    types.DetectorsConfig
	logger    *slog.Logger

	snapshotter *snapshot.Aggregator
	scopes      []types.Scope
}

// New creates an Engine with the built-in detectors enabled per config. A nil
// logger falls back to slog.Default.
func New(feed activity.Feed, st store.Store, scanCfg types.ScanConfig, detCfg types.DetectorsConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		feed:      feed,
		store:     st,
		detectors: detector.All(detCfg),
		scanCfg:   scanCfg,
		detCfg:    detCfg,
		logger:    logger,
	}
}

// SetSnapshotter enables KPI snapshot writes at the end of each run.
func (e *Engine) SetSnapshotter(agg *snapshot.Aggregator, scopes []types.Scope) {
	e.snapshotter = agg
	e.scopes = scopes
}

// Snapshotter returns the configured aggregator, nil when snapshots are off.
func (e *Engine) Snapshotter() *snapshot.Aggregator {
	return e.snapshotter
}

// Run executes one scan inside the configured time budget. Detector and
// insert failures degrade the result instead of failing the run; the returned
// error is reserved for an unusable activity feed.
func (e *Engine) Run(ctx context.Context) (types.ScanResult, error) {
	started := time.Now().UTC()
	result := types.ScanResult{StartedAt: started}
	metrics.ScansTotal.Add(1)

	ctx, cancel := context.WithTimeout(ctx, e.scanCfg.BudgetDuration())
	defer cancel()

	since := started.AddDate(0, 0, -e.scanCfg.WindowDays())
	snap, err := activity.Build(ctx, e.feed, since, started)
	if err != nil {
		metrics.ScanErrors.Add(1)
		result.FinishedAt = time.Now().UTC()
		return result, err
	}

	findings := e.detect(snap, &result)
	e.persist(ctx, findings, started, &result)

	if e.snapshotter != nil && ctx.Err() == nil {
		written, err := e.snapshotter.WriteAll(ctx, e.scopes, started)
		result.SnapshotsWritten = written
		if err != nil {
			result.Errors = append(result.Errors, types.DetectorError{
				Detector: "kpi_snapshots",
				Message:  err.Error(),
			})
		}
	}

	if ctx.Err() != nil {
		result.BudgetExceeded = true
		metrics.ScanBudgetExceeded.Add(1)
	}
	result.FinishedAt = time.Now().UTC()

	e.logger.Info("scan finished",
		"created", result.AlertsCreated,
		"duplicates", result.Duplicates,
		"dropped", result.Dropped,
		"errors", len(result.Errors),
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

// detect fans the detectors out over the snapshot. Detectors whose record
// kinds failed to fetch are skipped with an error entry; the rest run
// concurrently since each is a pure function of the snapshot.
func (e *Engine) detect(snap *activity.Snapshot, result *types.ScanResult) []types.RawFinding {
	type detOut struct {
		findings []types.RawFinding
		err      *types.DetectorError
	}
	outs := make([]detOut, len(e.detectors))

	var g errgroup.Group
	for n, d := range e.detectors {
		if failed := failedKind(snap, d); failed != "" {
			outs[n].err = &types.DetectorError{
				Detector: d.Name(),
				Kind:     failed,
				Message:  snap.Failed(activity.Kind(failed)).Error(),
			}
			continue
		}
		g.Go(func() error {
			findings, err := d.Detect(snap, e.detCfg)
			if err != nil {
				outs[n].err = &types.DetectorError{Detector: d.Name(), Message: err.Error()}
				return nil
			}
			outs[n].findings = findings
			return nil
		})
	}
	_ = g.Wait()

	var findings []types.RawFinding
	for _, out := range outs {
		if out.err != nil {
			metrics.DetectorsFailed.Add(1)
			e.logger.Warn("detector skipped", "detector", out.err.Detector, "reason", out.err.Message)
			result.Errors = append(result.Errors, *out.err)
			continue
		}
		findings = append(findings, out.findings...)
	}
	return findings
}

// persist normalizes and inserts findings until done or out of budget.
func (e *Engine) persist(ctx context.Context, findings []types.RawFinding, now time.Time, result *types.ScanResult) {
	ttl := e.scanCfg.InsightTTL()
	for _, f := range findings {
		if ctx.Err() != nil {
			return
		}

		insight, err := scorer.Normalize(f, now, ttl)
		if err != nil {
			metrics.FindingsDropped.Add(1)
			result.Dropped++
			e.logger.Warn("dropping malformed finding",
				"risk_type", f.Kind, "entity", f.EntityID, "error", err)
			continue
		}

		created, err := e.store.InsertInsight(ctx, insight)
		if err != nil {
			result.Errors = append(result.Errors, types.DetectorError{
				Detector: string(f.Kind),
				Message:  "insert: " + err.Error(),
			})
			continue
		}
		if created {
			metrics.InsightsCreated.Add(1)
			result.AlertsCreated++
		} else {
			metrics.InsightsSuppressed.Add(1)
			result.Duplicates++
		}
	}
}

func failedKind(snap *activity.Snapshot, d detector.Detector) string {
	for _, kind := range d.Kinds() {
		if snap.Failed(kind) != nil {
			return string(kind)
		}
	}
	return ""
}
