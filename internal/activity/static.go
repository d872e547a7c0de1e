package activity

import (
	"context"
	"sort"
	"time"
)

// StaticFeed is an in-memory Feed over fixed data. It backs the memory store
// mode and synthetic detector fixtures in tests.
type StaticFeed struct {
	Entities []Entity
	Events   []Record
	// Limit caps records per kind; zero means unlimited.
	Limit int
	// Errs injects a per-kind fetch error.
	Errs map[Kind]error
	// EntitiesErr injects a ListEntities error.
	EntitiesErr error
}

// ListEntities returns the fixed entity set.
func (f *StaticFeed) ListEntities(_ context.Context) ([]Entity, error) {
	if f.EntitiesErr != nil {
		return nil, f.EntitiesErr
	}
	return f.Entities, nil
}

// FetchWindow filters the fixed records by kind and lower bound, ascending.
func (f *StaticFeed) FetchWindow(_ context.Context, kind Kind, since time.Time) ([]Record, bool, error) {
	if err := f.Errs[kind]; err != nil {
		return nil, false, err
	}

	var records []Record
	for _, r := range f.Events {
		if r.Kind == kind && !r.OccurredAt.Before(since) {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].OccurredAt.Before(records[j].OccurredAt)
	})

	if f.Limit > 0 && len(records) > f.Limit {
		return records[:f.Limit], true, nil
	}
	return records, false, nil
}
