// Package store defines the storage backend interface for opsradar insights
// and KPI snapshots.
package store

import (
	"context"
	"errors"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

var (
	// ErrNotFound is returned when the requested insight or snapshot row
	// does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidTransition is returned when a status update violates the
	// open -> resolved/ignored lifecycle.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// Store is the storage backend interface. Postgres is the primary backend;
// DynamoDB serves the serverless deployment and memory backs tests.
//
// All backends enforce the same dedup rule: at most one open insight per
// (entity_type, entity_id, risk_type). InsertInsight reports whether the row
// was created; a false return with nil error means an open duplicate already
// existed and the finding was suppressed.
type Store interface {
	// Insight lifecycle
	InsertInsight(ctx context.Context, insight *types.RiskInsight) (bool, error)
	GetInsight(ctx context.Context, id string) (*types.RiskInsight, error)
	QueryInsights(ctx context.Context, filter types.InsightFilter) ([]types.RiskInsight, error)
	UpdateInsightStatus(ctx context.Context, id string, to types.InsightStatus) (*types.RiskInsight, error)
	Summarize(ctx context.Context, filter types.InsightFilter) (types.RiskSummary, error)

	// Daily KPI snapshots, one row per (snapshot_date, scope)
	UpsertSnapshot(ctx context.Context, snap types.KpiSnapshot) error
	LatestSnapshot(ctx context.Context, scope types.Scope) (*types.KpiSnapshot, error)
	SnapshotTrend(ctx context.Context, scope types.Scope, days int) ([]types.KpiSnapshot, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close()
}
