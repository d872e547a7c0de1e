// Package lambda wires shared dependencies for the AWS Lambda entrypoints.
package lambda

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"log/slog"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/internal/scan"
	"github.com/opsradar-systems/opsradar/internal/snapshot"
	"github.com/opsradar-systems/opsradar/internal/store"
	ddbstore "github.com/opsradar-systems/opsradar/internal/store/dynamodb"
	pgstore "github.com/opsradar-systems/opsradar/internal/store/postgres"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Deps holds shared dependencies for Lambda handlers.
type Deps struct {
	Store  store.Store
	Engine *scan.Engine
	Logger *slog.Logger
}

// Init creates shared dependencies from environment variables.
// Reads: TABLE_NAME, AWS_REGION, ACTIVITY_DSN, SCAN_BUDGET,
// ACTIVITY_WINDOW_DAYS, INSIGHT_TTL_DAYS, DISABLED_DETECTORS.
func Init(ctx context.Context) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	tableName := os.Getenv("TABLE_NAME")
	region := os.Getenv("AWS_REGION")
	activityDSN := os.Getenv("ACTIVITY_DSN")
	if tableName == "" {
		return nil, fmt.Errorf("TABLE_NAME environment variable required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS_REGION environment variable required")
	}
	if activityDSN == "" {
		return nil, fmt.Errorf("ACTIVITY_DSN environment variable required")
	}

	st, err := ddbstore.New(ctx, types.DynamoDBConfig{
		TableName: tableName,
		Region:    region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating DynamoDB store: %w", err)
	}

	scanCfg := types.ScanConfig{
		Budget:             os.Getenv("SCAN_BUDGET"),
		ActivityWindowDays: envInt("ACTIVITY_WINDOW_DAYS"),
		InsightTTLDays:     envInt("INSIGHT_TTL_DAYS"),
	}

	feed, err := activity.ConnectPostgresFeed(ctx, activityDSN, scanCfg.Limit())
	if err != nil {
		return nil, fmt.Errorf("connecting activity feed: %w", err)
	}

	detCfg := types.DetectorsConfig{Disabled: envList("DISABLED_DETECTORS")}

	eng := scan.New(feed, st, scanCfg, detCfg, logger)
	eng.SetSnapshotter(
		snapshot.New(pgstore.NewKpiSource(feed.Pool()), st, logger),
		types.SnapshotsConfig{}.SnapshotScopes(),
	)

	return &Deps{Store: st, Engine: eng, Logger: logger}, nil
}

func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
