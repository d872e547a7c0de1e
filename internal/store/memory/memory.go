// Package memory provides an in-memory Store used by unit tests and the demo
// configuration. It enforces the same dedup and lifecycle semantics as the
// durable backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu        sync.Mutex
	insights  map[string]types.RiskInsight // by ID
	openKeys  map[string]string            // dedup key -> open insight ID
	snapshots map[string]types.KpiSnapshot // scope key + "@" + date

	// Now is overridable in tests that exercise TTL expiry.
	Now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		insights:  make(map[string]types.RiskInsight),
		openKeys:  make(map[string]string),
		snapshots: make(map[string]types.KpiSnapshot),
		Now:       time.Now,
	}
}

func (s *Store) InsertInsight(_ context.Context, insight *types.RiskInsight) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := insight.DedupKey()
	if _, open := s.openKeys[key]; open {
		return false, nil
	}

	insight.ID = ulid.Make().String()
	s.insights[insight.ID] = *insight
	s.openKeys[key] = insight.ID
	return true, nil
}

func (s *Store) GetInsight(_ context.Context, id string) (*types.RiskInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.insights[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &i, nil
}

func (s *Store) QueryInsights(_ context.Context, filter types.InsightFilter) ([]types.RiskInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(filter), nil
}

func (s *Store) query(filter types.InsightFilter) []types.RiskInsight {
	filter = filter.Normalized()
	now := s.Now()

	var out []types.RiskInsight
	for _, i := range s.insights {
		if filter.Matches(i, now) {
			out = append(out, i)
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].RiskScore != out[b].RiskScore {
			return out[a].RiskScore > out[b].RiskScore
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *Store) UpdateInsightStatus(_ context.Context, id string, to types.InsightStatus) (*types.RiskInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.insights[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !types.ValidTransition(i.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, i.Status, to)
	}

	i.Status = to
	s.insights[id] = i
	delete(s.openKeys, i.DedupKey())
	return &i, nil
}

func (s *Store) Summarize(_ context.Context, filter types.InsightFilter) (types.RiskSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Summaries count exactly the rows a query would return.
	filter.Limit = 0
	return types.BuildSummary(s.query(filter)), nil
}

func snapshotKey(scope types.Scope, date string) string {
	return scope.Key() + "@" + date
}

func (s *Store) UpsertSnapshot(_ context.Context, snap types.KpiSnapshot) error {
	if snap.Date == "" {
		return fmt.Errorf("memory: snapshot date is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshotKey(snap.Scope, snap.Date)] = snap
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, scope types.Scope) (*types.KpiSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *types.KpiSnapshot
	for _, snap := range s.snapshots {
		if snap.Scope != scope {
			continue
		}
		if latest == nil || snap.Date > latest.Date {
			v := snap
			latest = &v
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) SnapshotTrend(_ context.Context, scope types.Scope, days int) ([]types.KpiSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.Now().UTC().AddDate(0, 0, -days).Format(types.SnapshotDateFormat)

	var out []types.KpiSnapshot
	for _, snap := range s.snapshots {
		if snap.Scope == scope && snap.Date >= cutoff {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date < out[b].Date })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}
