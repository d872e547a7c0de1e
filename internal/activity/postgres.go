package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// PostgresFeed reads operational records from the host application's Postgres
// database. All queries are read-only. A circuit breaker fails reads fast when
// the operational DB is flapping, so one bad dependency does not stall every
// detector in a run.
type PostgresFeed struct {
	pool    *pgxpool.Pool
	limit   int
	breaker *gobreaker.CircuitBreaker
}

// NewPostgresFeed creates a feed over an existing pool. limit caps records per
// kind; fetches that hit it are reported as truncated.
func NewPostgresFeed(pool *pgxpool.Pool, limit int) *PostgresFeed {
	if limit <= 0 {
		limit = types.DefaultFetchLimit
	}
	return &PostgresFeed{
		pool:  pool,
		limit: limit,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "activity-feed",
			Timeout: 30 * time.Second,
		}),
	}
}

// ConnectPostgresFeed connects to the operational database and verifies the
// connection.
func ConnectPostgresFeed(ctx context.Context, dsn string, limit int) (*PostgresFeed, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("activity db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("activity db ping: %w", err)
	}
	return NewPostgresFeed(pool, limit), nil
}

// Close closes the underlying pool.
func (f *PostgresFeed) Close() {
	f.pool.Close()
}

// Pool exposes the underlying pool so the KPI source can share the
// operational database connection.
func (f *PostgresFeed) Pool() *pgxpool.Pool {
	return f.pool
}

// ListEntities returns every operational entity the detectors inspect.
func (f *PostgresFeed) ListEntities(ctx context.Context) ([]Entity, error) {
	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.listEntities(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Entity), nil
}

func (f *PostgresFeed) listEntities(ctx context.Context) ([]Entity, error) {
	rows, err := f.pool.Query(ctx, `
		SELECT entity_type, entity_id, COALESCE(name, ''), state,
			COALESCE(region, ''), COALESCE(brand, ''), created_at, updated_at
		FROM entities
		ORDER BY entity_type, entity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var et, state string
		if err := rows.Scan(&et, &e.ID, &e.Name, &state, &e.Region, &e.Brand,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Type = types.EntityType(et)
		e.State = types.EntityState(state)
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// FetchWindow returns records of one kind since the lower bound, ascending by
// timestamp. When the limit is hit the result is truncated to the limit and
// flagged, never silently cut.
func (f *PostgresFeed) FetchWindow(ctx context.Context, kind Kind, since time.Time) ([]Record, bool, error) {
	type fetchResult struct {
		records   []Record
		truncated bool
	}
	out, err := f.breaker.Execute(func() (interface{}, error) {
		records, truncated, err := f.fetchWindow(ctx, kind, since)
		if err != nil {
			return nil, err
		}
		return fetchResult{records, truncated}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := out.(fetchResult)
	return res.records, res.truncated, nil
}

func (f *PostgresFeed) fetchWindow(ctx context.Context, kind Kind, since time.Time) ([]Record, bool, error) {
	// Fetch one extra row to detect truncation.
	rows, err := f.pool.Query(ctx, `
		SELECT kind, entity_type, entity_id, COALESCE(region, ''), occurred_at
		FROM activities
		WHERE kind = $1 AND occurred_at >= $2
		ORDER BY occurred_at ASC
		LIMIT $3
	`, string(kind), since, f.limit+1)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var k, et string
		if err := rows.Scan(&k, &et, &r.EntityID, &r.Region, &r.OccurredAt); err != nil {
			return nil, false, err
		}
		r.Kind = Kind(k)
		r.EntityType = types.EntityType(et)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	truncated := len(records) > f.limit
	if truncated {
		records = records[:f.limit]
	}
	return records, truncated, nil
}
