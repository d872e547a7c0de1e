package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const insightColumns = `id, entity_type, entity_id, region, risk_type, risk_score, risk_level,
	headline, COALESCE(details, ''), COALESCE(recommended_action, ''), source_data,
	status, created_at, expires_at`

// InsertInsight inserts a scored insight, assigning its ID. The partial unique
// index on open rows makes the dedup atomic under concurrent scans: a
// conflicting insert affects zero rows and reports created=false.
func (s *Store) InsertInsight(ctx context.Context, insight *types.RiskInsight) (bool, error) {
	sourceJSON, err := json.Marshal(insight.SourceData)
	if err != nil {
		return false, fmt.Errorf("marshal source data: %w", err)
	}

	id := ulid.Make().String()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO risk_insights (id, entity_type, entity_id, region, risk_type,
			risk_score, risk_level, headline, details, recommended_action,
			source_data, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (entity_type, entity_id, risk_type) WHERE status = 'open' DO NOTHING
	`, id, string(insight.EntityType), insight.EntityID, insight.Region, string(insight.RiskType),
		insight.RiskScore, string(insight.RiskLevel), insight.Headline, insight.Details,
		insight.RecommendedAction, sourceJSON, string(insight.Status), insight.CreatedAt,
		insight.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("insert insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	insight.ID = id
	return true, nil
}

// GetInsight loads one insight by ID.
func (s *Store) GetInsight(ctx context.Context, id string) (*types.RiskInsight, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+insightColumns+` FROM risk_insights WHERE id = $1
	`, id)

	insight, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return insight, err
}

// QueryInsights returns insights matching the filter, highest score first.
func (s *Store) QueryInsights(ctx context.Context, filter types.InsightFilter) ([]types.RiskInsight, error) {
	query, args := buildInsightQuery(filter.Normalized())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []types.RiskInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *insight)
	}
	return out, rows.Err()
}

// UpdateInsightStatus applies open -> resolved/ignored. The status predicate
// in the UPDATE makes concurrent transitions race-free: only one wins.
func (s *Store) UpdateInsightStatus(ctx context.Context, id string, to types.InsightStatus) (*types.RiskInsight, error) {
	if !types.ValidTransition(types.StatusOpen, to) {
		return nil, fmt.Errorf("%w: open -> %s", store.ErrInvalidTransition, to)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE risk_insights SET status = $2
		WHERE id = $1 AND status = 'open'
		RETURNING `+insightColumns+`
	`, id, string(to))

	insight, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either missing or already terminal; disambiguate for the caller.
		var current string
		lookupErr := s.pool.QueryRow(ctx, `SELECT status FROM risk_insights WHERE id = $1`, id).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, current, to)
	}
	return insight, err
}

// Summarize counts insights matching the filter grouped by level and type.
// It reuses the query path and types.BuildSummary so counts cannot drift from
// what QueryInsights returns.
func (s *Store) Summarize(ctx context.Context, filter types.InsightFilter) (types.RiskSummary, error) {
	filter.Limit = 0
	rows, err := s.QueryInsights(ctx, filter)
	if err != nil {
		return types.RiskSummary{}, err
	}
	return types.BuildSummary(rows), nil
}

func buildInsightQuery(filter types.InsightFilter) (string, []any) {
	query := `SELECT ` + insightColumns + ` FROM risk_insights WHERE status = $1`
	args := []any{string(filter.Status)}

	if !filter.IncludeExpired && filter.Status == types.StatusOpen {
		query += ` AND (expires_at IS NULL OR expires_at > NOW())`
	}
	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		query += fmt.Sprintf(" AND region = $%d", len(args))
	}
	if filter.RiskType != "" {
		args = append(args, string(filter.RiskType))
		query += fmt.Sprintf(" AND risk_type = $%d", len(args))
	}
	if filter.MinLevel != "" {
		args = append(args, types.MinScoreForLevel(filter.MinLevel))
		query += fmt.Sprintf(" AND risk_score >= $%d", len(args))
	}

	query += ` ORDER BY risk_score DESC, created_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func scanInsight(row pgx.Row) (*types.RiskInsight, error) {
	var i types.RiskInsight
	var sourceJSON []byte
	if err := row.Scan(&i.ID, &i.EntityType, &i.EntityID, &i.Region, &i.RiskType,
		&i.RiskScore, &i.RiskLevel, &i.Headline, &i.Details, &i.RecommendedAction,
		&sourceJSON, &i.Status, &i.CreatedAt, &i.ExpiresAt); err != nil {
		return nil, err
	}
	if len(sourceJSON) > 0 {
		if err := json.Unmarshal(sourceJSON, &i.SourceData); err != nil {
			return nil, fmt.Errorf("unmarshal source data: %w", err)
		}
	}
	return &i, nil
}
