// Package postgres implements the primary durable store for opsradar risk
// insights and KPI snapshots.
package postgres

const schemaDDL = `
CREATE TABLE IF NOT EXISTS risk_insights (
    id                 TEXT PRIMARY KEY,
    entity_type        TEXT NOT NULL,
    entity_id          TEXT NOT NULL DEFAULT '',
    region             TEXT NOT NULL DEFAULT '',
    risk_type          TEXT NOT NULL,
    risk_score         INTEGER NOT NULL,
    risk_level         TEXT NOT NULL,
    headline           TEXT NOT NULL,
    details            TEXT,
    recommended_action TEXT,
    source_data        JSONB,
    status             TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    expires_at         TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_risk_insights_open_dedup
    ON risk_insights (entity_type, entity_id, risk_type) WHERE status = 'open';
CREATE INDEX IF NOT EXISTS idx_risk_insights_status_score ON risk_insights (status, risk_score DESC);
CREATE INDEX IF NOT EXISTS idx_risk_insights_region ON risk_insights (region);
CREATE INDEX IF NOT EXISTS idx_risk_insights_risk_type ON risk_insights (risk_type);

CREATE TABLE IF NOT EXISTS kpi_snapshots (
    snapshot_date       TEXT NOT NULL,
    brand               TEXT NOT NULL DEFAULT '',
    region              TEXT NOT NULL DEFAULT '',
    total_entities      INTEGER NOT NULL DEFAULT 0,
    active_entities     INTEGER NOT NULL DEFAULT 0,
    inactive_entities   INTEGER NOT NULL DEFAULT 0,
    total_orders        INTEGER NOT NULL DEFAULT 0,
    unpaid_orders       INTEGER NOT NULL DEFAULT 0,
    revenue             NUMERIC(14,2) NOT NULL DEFAULT 0,
    same_day_deliveries INTEGER NOT NULL DEFAULT 0,
    low_stock_items     INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (snapshot_date, brand, region)
);
CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_scope_date ON kpi_snapshots (brand, region, snapshot_date);
`
