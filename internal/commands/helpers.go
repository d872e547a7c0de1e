// Package commands implements the CLI subcommands for the opsradar binary.
package commands

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/internal/runlock"
	"github.com/opsradar-systems/opsradar/internal/scan"
	"github.com/opsradar-systems/opsradar/internal/snapshot"
	"github.com/opsradar-systems/opsradar/internal/store"
	ddbstore "github.com/opsradar-systems/opsradar/internal/store/dynamodb"
	"github.com/opsradar-systems/opsradar/internal/store/memory"
	pgstore "github.com/opsradar-systems/opsradar/internal/store/postgres"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// newStore creates the configured insight store.
func newStore(ctx context.Context, cfg *types.ProjectConfig) (store.Store, error) {
	switch cfg.Store {
	case "postgres":
		st, err := pgstore.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to Postgres: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrating Postgres: %w", err)
		}
		return st, nil
	case "dynamodb":
		st, err := ddbstore.New(ctx, *cfg.DynamoDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to DynamoDB: %w", err)
		}
		return st, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store: %s", cfg.Store)
	}
}

// newLocker creates the scan run lock when Redis is configured, nil otherwise.
func newLocker(cfg *types.ProjectConfig) *runlock.Locker {
	if cfg.Redis == nil {
		return nil
	}
	return runlock.New(*cfg.Redis)
}

// deps bundles everything a scan needs, with a cleanup that closes connections
// in reverse order.
type deps struct {
	store   store.Store
	engine  *scan.Engine
	locker  *runlock.Locker
	cleanup func()
}

// buildDeps wires the store, activity feed, scan engine and optional snapshot
// aggregator from the project config. The memory store gets an empty static
// feed unless a Postgres activity DSN is configured alongside it.
func buildDeps(ctx context.Context, cfg *types.ProjectConfig, logger *slog.Logger) (*deps, error) {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	closers := []func(){st.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var feed activity.Feed
	var activityPool *pgxpool.Pool
	if dsn := activityDSN(cfg); dsn != "" {
		pgFeed, err := activity.ConnectPostgresFeed(ctx, dsn, cfg.Scan.Limit())
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, pgFeed.Close)
		feed = pgFeed
		activityPool = pgFeed.Pool()
	} else {
		feed = &activity.StaticFeed{Limit: cfg.Scan.Limit()}
	}

	eng := scan.New(feed, st, cfg.Scan, cfg.Detectors, logger)

	if cfg.Snapshots.SnapshotsEnabled() {
		var source snapshot.Source
		if activityPool != nil {
			source = pgstore.NewKpiSource(activityPool)
		} else {
			source = &snapshot.StaticSource{}
		}
		eng.SetSnapshotter(snapshot.New(source, st, logger), cfg.Snapshots.SnapshotScopes())
	}

	return &deps{
		store:   st,
		engine:  eng,
		locker:  newLocker(cfg),
		cleanup: cleanup,
	}, nil
}

// activityDSN returns the operational database DSN, preferring the dedicated
// activity DSN over the store DSN.
func activityDSN(cfg *types.ProjectConfig) string {
	if cfg.Postgres == nil {
		return ""
	}
	if cfg.Postgres.ActivityDSN != "" {
		return cfg.Postgres.ActivityDSN
	}
	return cfg.Postgres.DSN
}
