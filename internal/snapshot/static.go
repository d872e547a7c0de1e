package snapshot

import (
	"context"
	"time"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// StaticSource serves fixed KPI figures per scope key, used by tests and the
// demo configuration.
type StaticSource struct {
	Snapshots map[string]types.KpiSnapshot // keyed by Scope.Key()
	Errs      map[string]error
}

func (s *StaticSource) Aggregate(_ context.Context, scope types.Scope, day time.Time) (types.KpiSnapshot, error) {
	if err := s.Errs[scope.Key()]; err != nil {
		return types.KpiSnapshot{}, err
	}
	snap := s.Snapshots[scope.Key()]
	snap.Scope = scope
	snap.Date = day.UTC().Format(types.SnapshotDateFormat)
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	return snap, nil
}
