package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

var scoreNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func neverVisitedFinding(days int) types.RawFinding {
	return types.RawFinding{
		EntityType: types.EntityOutlet,
		EntityID:   "out-1",
		Region:     "north",
		Kind:       types.RiskNeverVisited,
		Evidence: types.NeverVisitedEvidence{
			CreatedAt:         scoreNow.AddDate(0, 0, -days),
			DaysSinceCreation: days,
		},
	}
}

func TestNormalize_NeverVisitedBands(t *testing.T) {
	cases := []struct {
		days  int
		score int
		level types.RiskLevel
	}{
		{8, 40, types.LevelMedium},
		{15, 47, types.LevelMedium},
		{30, 62, types.LevelMedium},
		{31, 70, types.LevelHigh},
		{40, 79, types.LevelHigh},
		{200, 89, types.LevelHigh}, // growth caps below critical
	}
	for _, tc := range cases {
		insight, err := Normalize(neverVisitedFinding(tc.days), scoreNow, 0)
		require.NoError(t, err, "days=%d", tc.days)
		assert.Equal(t, tc.score, insight.RiskScore, "days=%d", tc.days)
		assert.Equal(t, tc.level, insight.RiskLevel, "days=%d", tc.days)
	}
}

func TestNormalize_TerritoryGapBands(t *testing.T) {
	cases := []struct {
		uncovered int
		score     int
	}{
		{3, 55},
		{4, 60},
		{5, 70},
		{8, 76},
		{30, 89},
	}
	for _, tc := range cases {
		insight, err := Normalize(types.RawFinding{
			EntityType: types.EntityRegion,
			Region:     "north",
			Kind:       types.RiskTerritoryGap,
			Evidence:   types.TerritoryGapEvidence{Region: "north", UncoveredCount: tc.uncovered, WindowDays: 14},
		}, scoreNow, 0)
		require.NoError(t, err, "uncovered=%d", tc.uncovered)
		assert.Equal(t, tc.score, insight.RiskScore, "uncovered=%d", tc.uncovered)
	}
}

func TestNormalize_OrderDropScoresHigh(t *testing.T) {
	cases := []struct {
		drop  int
		score int
	}{
		{50, 70},
		{60, 73},
		{75, 79},
		{100, 89},
	}
	for _, tc := range cases {
		insight, err := Normalize(types.RawFinding{
			EntityType: types.EntityOutlet,
			EntityID:   "out-1",
			Kind:       types.RiskOrderDrop,
			Evidence:   types.OrderDropEvidence{PriorCount: 10, RecentCount: 4, DropPercent: tc.drop},
		}, scoreNow, 0)
		require.NoError(t, err, "drop=%d", tc.drop)
		assert.Equal(t, tc.score, insight.RiskScore, "drop=%d", tc.drop)
		assert.Equal(t, types.LevelHigh, insight.RiskLevel)
	}
}

func TestNormalize_ProspectClusterGrowsWithSize(t *testing.T) {
	small, err := Normalize(types.RawFinding{
		EntityType: types.EntityRegion,
		Region:     "north",
		Kind:       types.RiskProspectCluster,
		Evidence:   types.ProspectClusterEvidence{Region: "north", UncontactedCount: 5},
	}, scoreNow, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, small.RiskScore)
	assert.Equal(t, types.LevelMedium, small.RiskLevel)

	large, err := Normalize(types.RawFinding{
		EntityType: types.EntityRegion,
		Region:     "north",
		Kind:       types.RiskProspectCluster,
		Evidence:   types.ProspectClusterEvidence{Region: "north", UncontactedCount: 40},
	}, scoreNow, 0)
	require.NoError(t, err)
	assert.Equal(t, 69, large.RiskScore, "stays inside the medium band")
	assert.Equal(t, types.LevelMedium, large.RiskLevel)
}

func TestNormalize_InactiveHubFixedScore(t *testing.T) {
	insight, err := Normalize(types.RawFinding{
		EntityType: types.EntityHub,
		EntityID:   "h-1",
		Kind:       types.RiskInactiveHub,
		Evidence:   types.InactiveHubEvidence{LastUpdatedAt: scoreNow.AddDate(0, 0, -45), DaysInactive: 45},
	}, scoreNow, 0)
	require.NoError(t, err)
	assert.Equal(t, 55, insight.RiskScore)
	assert.Equal(t, types.LevelMedium, insight.RiskLevel)
}

func TestNormalize_LevelAlwaysMatchesScoreBand(t *testing.T) {
	for days := 8; days <= 120; days++ {
		insight, err := Normalize(neverVisitedFinding(days), scoreNow, 0)
		require.NoError(t, err)
		assert.Equal(t, types.LevelForScore(insight.RiskScore), insight.RiskLevel, "days=%d", days)
	}
}

func TestNormalize_PopulatesInsightFields(t *testing.T) {
	insight, err := Normalize(neverVisitedFinding(10), scoreNow, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Empty(t, insight.ID, "store assigns the ID at insert")
	assert.Equal(t, types.StatusOpen, insight.Status)
	assert.Equal(t, scoreNow, insight.CreatedAt)
	require.NotNil(t, insight.ExpiresAt)
	assert.Equal(t, scoreNow.AddDate(0, 0, 30), insight.ExpiresAt.UTC())
	assert.NotEmpty(t, insight.Headline)
	assert.NotEmpty(t, insight.RecommendedAction)
	assert.Equal(t, 10, insight.SourceData["daysSinceCreation"])
}

func TestNormalize_ZeroTTLMeansNoExpiry(t *testing.T) {
	insight, err := Normalize(neverVisitedFinding(10), scoreNow, 0)
	require.NoError(t, err)
	assert.Nil(t, insight.ExpiresAt)
}

func TestNormalize_RejectsMalformedFindings(t *testing.T) {
	var malformed *MalformedFindingError

	_, err := Normalize(types.RawFinding{Kind: types.RiskNeverVisited}, scoreNow, 0)
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "missing evidence")

	_, err = Normalize(types.RawFinding{
		Kind:     types.RiskNeverVisited,
		Evidence: types.OrderDropEvidence{PriorCount: 5, DropPercent: 60},
	}, scoreNow, 0)
	require.ErrorAs(t, err, &malformed, "evidence kind must match the finding kind")

	_, err = Normalize(types.RawFinding{
		Kind:     types.RiskTerritoryGap,
		Evidence: types.TerritoryGapEvidence{UncoveredCount: 3},
	}, scoreNow, 0)
	require.ErrorAs(t, err, &malformed, "evidence must pass validation")

	_, err = Normalize(neverVisitedFinding(5), scoreNow, 0)
	require.ErrorAs(t, err, &malformed, "below the reporting floor")
}
