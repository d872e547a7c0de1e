package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const snapshotColumns = `snapshot_date, brand, region, total_entities, active_entities,
	inactive_entities, total_orders, unpaid_orders, revenue, same_day_deliveries,
	low_stock_items, created_at`

// UpsertSnapshot writes one daily KPI row. Reruns on the same day overwrite.
func (s *Store) UpsertSnapshot(ctx context.Context, snap types.KpiSnapshot) error {
	if snap.Date == "" {
		return fmt.Errorf("postgres: snapshot date is required")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO kpi_snapshots (snapshot_date, brand, region, total_entities,
			active_entities, inactive_entities, total_orders, unpaid_orders,
			revenue, same_day_deliveries, low_stock_items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (snapshot_date, brand, region) DO UPDATE SET
			total_entities      = EXCLUDED.total_entities,
			active_entities     = EXCLUDED.active_entities,
			inactive_entities   = EXCLUDED.inactive_entities,
			total_orders        = EXCLUDED.total_orders,
			unpaid_orders       = EXCLUDED.unpaid_orders,
			revenue             = EXCLUDED.revenue,
			same_day_deliveries = EXCLUDED.same_day_deliveries,
			low_stock_items     = EXCLUDED.low_stock_items,
			created_at          = EXCLUDED.created_at
	`, snap.Date, snap.Scope.Brand, snap.Scope.Region, snap.TotalEntities,
		snap.ActiveEntities, snap.InactiveEntities, snap.TotalOrders, snap.UnpaidOrders,
		snap.Revenue, snap.SameDayDeliveries, snap.LowStockItems, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a scope.
func (s *Store) LatestSnapshot(ctx context.Context, scope types.Scope) (*types.KpiSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM kpi_snapshots
		WHERE brand = $1 AND region = $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`, scope.Brand, scope.Region)

	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return snap, err
}

// SnapshotTrend returns a scope's snapshots from the last N days, oldest
// first, with gaps left as-is for days no scan ran.
func (s *Store) SnapshotTrend(ctx context.Context, scope types.Scope, days int) ([]types.KpiSnapshot, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(types.SnapshotDateFormat)

	rows, err := s.pool.Query(ctx, `
		SELECT `+snapshotColumns+` FROM kpi_snapshots
		WHERE brand = $1 AND region = $2 AND snapshot_date >= $3
		ORDER BY snapshot_date ASC
	`, scope.Brand, scope.Region, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query snapshot trend: %w", err)
	}
	defer rows.Close()

	var out []types.KpiSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*types.KpiSnapshot, error) {
	var snap types.KpiSnapshot
	if err := row.Scan(&snap.Date, &snap.Scope.Brand, &snap.Scope.Region,
		&snap.TotalEntities, &snap.ActiveEntities, &snap.InactiveEntities,
		&snap.TotalOrders, &snap.UnpaidOrders, &snap.Revenue,
		&snap.SameDayDeliveries, &snap.LowStockItems, &snap.CreatedAt); err != nil {
		return nil, err
	}
	return &snap, nil
}
