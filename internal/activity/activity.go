// Package activity provides read-only access to the host application's
// operational records, grouped into an immutable per-run snapshot.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Kind names a class of operational activity record.
type Kind string

// Kind values fetched by the feed.
const (
	KindVisit    Kind = "visit"
	KindDelivery Kind = "delivery"
	KindContact  Kind = "contact"
)

// AllKinds lists every record kind a snapshot carries.
var AllKinds = []Kind{KindVisit, KindDelivery, KindContact}

// Record is one raw operational activity row.
type Record struct {
	Kind       Kind
	EntityType types.EntityType
	EntityID   string
	Region     string
	OccurredAt time.Time
}

// Entity is an operational subject (outlet, prospect, hub) as recorded by the
// host application. The engine only reads these rows.
type Entity struct {
	Type      types.EntityType
	ID        string
	Name      string
	State     types.EntityState
	Region    string
	Brand     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feed fetches operational records. Implementations must return records
// ordered by timestamp ascending and must signal truncation instead of
// silently cutting results off.
type Feed interface {
	FetchWindow(ctx context.Context, kind Kind, since time.Time) (records []Record, truncated bool, err error)
	ListEntities(ctx context.Context) ([]Entity, error)
}

// DataAccessError wraps a failure to read one activity kind. It isolates the
// failure to the detectors depending on that kind.
type DataAccessError struct {
	Kind Kind
	Err  error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("fetching %s activity: %v", e.Kind, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// Snapshot is the immutable view of fetched data taken once per scan run.
// Detectors only read it; all cross-entity aggregation works off this single
// snapshot so detectors never observe each other's effects.
type Snapshot struct {
	TakenAt  time.Time
	Since    time.Time
	Entities []Entity

	records   map[Kind][]Record
	truncated map[Kind]bool
	failed    map[Kind]*DataAccessError
}

// Records returns the fetched records of a kind, ascending by timestamp.
func (s *Snapshot) Records(kind Kind) []Record {
	return s.records[kind]
}

// Truncated reports whether the fetch for a kind hit the record limit, so
// detectors can decide whether to treat results as partial.
func (s *Snapshot) Truncated(kind Kind) bool {
	return s.truncated[kind]
}

// Failed returns the data-access error for a kind, or nil.
func (s *Snapshot) Failed(kind Kind) *DataAccessError {
	return s.failed[kind]
}

// FailedKinds returns the kinds whose fetch failed.
func (s *Snapshot) FailedKinds() []Kind {
	var kinds []Kind
	for _, k := range AllKinds {
		if s.failed[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Build fetches entities plus every activity kind since the given lower bound
// and composes the run snapshot. Per-kind fetch failures are recorded on the
// snapshot rather than aborting; only a feed that cannot serve entities or any
// kind at all is a hard error.
func Build(ctx context.Context, feed Feed, since, now time.Time) (*Snapshot, error) {
	entities, err := feed.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	snap := &Snapshot{
		TakenAt:   now,
		Since:     since,
		Entities:  entities,
		records:   make(map[Kind][]Record, len(AllKinds)),
		truncated: make(map[Kind]bool, len(AllKinds)),
		failed:    make(map[Kind]*DataAccessError),
	}

	failures := 0
	for _, kind := range AllKinds {
		records, truncated, err := feed.FetchWindow(ctx, kind, since)
		if err != nil {
			snap.failed[kind] = &DataAccessError{Kind: kind, Err: err}
			failures++
			continue
		}
		snap.records[kind] = records
		snap.truncated[kind] = truncated
	}

	if failures == len(AllKinds) {
		return nil, fmt.Errorf("activity feed unreachable: all %d kinds failed", failures)
	}
	return snap, nil
}
