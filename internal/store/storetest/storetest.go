// Package storetest exercises the store.Store contract against any backend.
// Each backend's test package calls Run with a factory that yields a fresh,
// empty store per subtest, which keeps postgres, dynamodb, and memory
// behaviourally aligned.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Factory returns a fresh, empty store for one subtest. Cleanup is the
// backend's job (t.Cleanup).
type Factory func(t *testing.T) store.Store

func insight(entityID string, rt types.RiskType, score int) *types.RiskInsight {
	return &types.RiskInsight{
		EntityType: types.EntityOutlet,
		EntityID:   entityID,
		Region:     "north",
		RiskType:   rt,
		RiskScore:  score,
		RiskLevel:  types.LevelForScore(score),
		Headline:   fmt.Sprintf("%s on %s", rt, entityID),
		SourceData: map[string]any{"test": true},
		Status:     types.StatusOpen,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Run executes the full contract suite against the backend.
func Run(t *testing.T, factory Factory) {
	t.Run("InsertAssignsIDAndDedups", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		first := insight("out-1", types.RiskNeverVisited, 45)
		created, err := s.InsertInsight(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, first.ID)

		dup := insight("out-1", types.RiskNeverVisited, 52)
		created, err = s.InsertInsight(ctx, dup)
		require.NoError(t, err)
		assert.False(t, created, "second open insight for the same key is suppressed")

		open, err := s.QueryInsights(ctx, types.InsightFilter{})
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, 45, open[0].RiskScore, "the original row wins")
	})

	t.Run("DedupReleasedAfterResolve", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		first := insight("out-1", types.RiskNeverVisited, 45)
		_, err := s.InsertInsight(ctx, first)
		require.NoError(t, err)

		_, err = s.UpdateInsightStatus(ctx, first.ID, types.StatusResolved)
		require.NoError(t, err)

		again := insight("out-1", types.RiskNeverVisited, 60)
		created, err := s.InsertInsight(ctx, again)
		require.NoError(t, err)
		assert.True(t, created, "a resolved insight no longer blocks fresh findings")
		assert.NotEqual(t, first.ID, again.ID)
	})

	t.Run("DedupScopedByRiskType", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		created, err := s.InsertInsight(ctx, insight("out-1", types.RiskNeverVisited, 45))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.InsertInsight(ctx, insight("out-1", types.RiskOrderDrop, 73))
		require.NoError(t, err)
		assert.True(t, created, "different risk types on one entity coexist")
	})

	t.Run("StatusLifecycle", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		i := insight("out-1", types.RiskNeverVisited, 45)
		_, err := s.InsertInsight(ctx, i)
		require.NoError(t, err)

		updated, err := s.UpdateInsightStatus(ctx, i.ID, types.StatusResolved)
		require.NoError(t, err)
		assert.Equal(t, types.StatusResolved, updated.Status)

		_, err = s.UpdateInsightStatus(ctx, i.ID, types.StatusIgnored)
		assert.ErrorIs(t, err, store.ErrInvalidTransition, "resolved is terminal")

		_, err = s.UpdateInsightStatus(ctx, "nope", types.StatusResolved)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("GetInsightRoundtrip", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		i := insight("out-1", types.RiskOrderDrop, 73)
		i.Details = "deliveries fell from 10 to 4"
		i.RecommendedAction = "call the outlet"
		_, err := s.InsertInsight(ctx, i)
		require.NoError(t, err)

		got, err := s.GetInsight(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, i.EntityID, got.EntityID)
		assert.Equal(t, i.Details, got.Details)
		assert.Equal(t, i.RecommendedAction, got.RecommendedAction)
		assert.Equal(t, types.LevelHigh, got.RiskLevel)

		_, err = s.GetInsight(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("QueryOrdering", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		for n, score := range []int{45, 91, 73} {
			_, err := s.InsertInsight(ctx, insight(fmt.Sprintf("out-%d", n), types.RiskNeverVisited, score))
			require.NoError(t, err)
		}

		got, err := s.QueryInsights(ctx, types.InsightFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int{91, 73, 45}, []int{got[0].RiskScore, got[1].RiskScore, got[2].RiskScore})
	})

	t.Run("QueryFilters", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		south := insight("out-2", types.RiskOrderDrop, 73)
		south.Region = "south"
		for _, i := range []*types.RiskInsight{
			insight("out-1", types.RiskNeverVisited, 45),
			south,
			insight("out-3", types.RiskNeverVisited, 92),
		} {
			_, err := s.InsertInsight(ctx, i)
			require.NoError(t, err)
		}

		got, err := s.QueryInsights(ctx, types.InsightFilter{MinLevel: types.LevelHigh})
		require.NoError(t, err)
		require.Len(t, got, 2)

		got, err = s.QueryInsights(ctx, types.InsightFilter{Region: "south"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "out-2", got[0].EntityID)

		got, err = s.QueryInsights(ctx, types.InsightFilter{RiskType: types.RiskNeverVisited})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.QueryInsights(ctx, types.InsightFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 92, got[0].RiskScore)
	})

	t.Run("ExpiredOpenInsightsHidden", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		stale := insight("out-1", types.RiskNeverVisited, 45)
		past := time.Now().UTC().Add(-time.Hour)
		stale.ExpiresAt = &past
		_, err := s.InsertInsight(ctx, stale)
		require.NoError(t, err)

		live := insight("out-2", types.RiskNeverVisited, 50)
		_, err = s.InsertInsight(ctx, live)
		require.NoError(t, err)

		got, err := s.QueryInsights(ctx, types.InsightFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "out-2", got[0].EntityID)

		got, err = s.QueryInsights(ctx, types.InsightFilter{IncludeExpired: true})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("SummarizeMatchesQuery", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		scores := map[string]int{"out-1": 45, "out-2": 73, "out-3": 92, "out-4": 95}
		for id, score := range scores {
			_, err := s.InsertInsight(ctx, insight(id, types.RiskNeverVisited, score))
			require.NoError(t, err)
		}
		_, err := s.InsertInsight(ctx, insight("out-1", types.RiskOrderDrop, 73))
		require.NoError(t, err)

		summary, err := s.Summarize(ctx, types.InsightFilter{})
		require.NoError(t, err)

		rows, err := s.QueryInsights(ctx, types.InsightFilter{})
		require.NoError(t, err)
		assert.Equal(t, types.BuildSummary(rows), summary)
		assert.Equal(t, 5, summary.Total)
		assert.Equal(t, 2, summary.ByLevel[types.LevelCritical])
		assert.Equal(t, 4, summary.ByType[types.RiskNeverVisited])
	})

	t.Run("SnapshotUpsertIsIdempotent", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		scope := types.Scope{Brand: "acme", Region: "north"}
		date := time.Now().UTC().Format(types.SnapshotDateFormat)

		first := snapshotFixture(scope, date, 10)
		require.NoError(t, s.UpsertSnapshot(ctx, first))

		second := snapshotFixture(scope, date, 25)
		require.NoError(t, s.UpsertSnapshot(ctx, second))

		got, err := s.LatestSnapshot(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 25, got.TotalOrders, "rerun overwrites the same day")
		assert.True(t, got.Revenue.Equal(second.Revenue))
	})

	t.Run("LatestSnapshotPerScope", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		north := types.Scope{Region: "north"}
		south := types.Scope{Region: "south"}

		today := time.Now().UTC()
		require.NoError(t, s.UpsertSnapshot(ctx, snapshotFixture(north, today.AddDate(0, 0, -1).Format(types.SnapshotDateFormat), 5)))
		require.NoError(t, s.UpsertSnapshot(ctx, snapshotFixture(north, today.Format(types.SnapshotDateFormat), 8)))
		require.NoError(t, s.UpsertSnapshot(ctx, snapshotFixture(south, today.Format(types.SnapshotDateFormat), 3)))

		got, err := s.LatestSnapshot(ctx, north)
		require.NoError(t, err)
		assert.Equal(t, 8, got.TotalOrders)

		_, err = s.LatestSnapshot(ctx, types.Scope{Region: "west"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SnapshotTrendWindow", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		scope := types.Scope{}
		today := time.Now().UTC()

		for _, daysAgo := range []int{0, 1, 2, 40} {
			date := today.AddDate(0, 0, -daysAgo).Format(types.SnapshotDateFormat)
			require.NoError(t, s.UpsertSnapshot(ctx, snapshotFixture(scope, date, daysAgo)))
		}

		trend, err := s.SnapshotTrend(ctx, scope, 7)
		require.NoError(t, err)
		require.Len(t, trend, 3, "the 40-day-old row falls outside the window")
		for n := 1; n < len(trend); n++ {
			assert.Less(t, trend[n-1].Date, trend[n].Date, "trend is date-ascending")
		}
	})
}

func snapshotFixture(scope types.Scope, date string, orders int) types.KpiSnapshot {
	return types.KpiSnapshot{
		Date:              date,
		Scope:             scope,
		TotalEntities:     100,
		ActiveEntities:    80,
		InactiveEntities:  20,
		TotalOrders:       orders,
		UnpaidOrders:      orders / 4,
		Revenue:           decimal.NewFromInt(int64(orders * 150)),
		SameDayDeliveries: orders / 2,
		LowStockItems:     3,
		CreatedAt:         time.Now().UTC().Truncate(time.Millisecond),
	}
}
