package detector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func buildSnap(t *testing.T, feed *activity.StaticFeed) *activity.Snapshot {
	t.Helper()
	snap, err := activity.Build(context.Background(), feed, testNow.AddDate(0, 0, -90), testNow)
	require.NoError(t, err)
	return snap
}

func outlet(id, region string, ageDays int) activity.Entity {
	return activity.Entity{
		Type:      types.EntityOutlet,
		ID:        id,
		State:     types.StateActive,
		Region:    region,
		CreatedAt: testNow.AddDate(0, 0, -ageDays),
		UpdatedAt: testNow.AddDate(0, 0, -ageDays),
	}
}

func TestNeverVisited_EightDaysOldUnvisited(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 8)},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, types.RiskNeverVisited, f.Kind)
	assert.Equal(t, "out-1", f.EntityID)
	ev := f.Evidence.(types.NeverVisitedEvidence)
	assert.Equal(t, 8, ev.DaysSinceCreation)
}

func TestNeverVisited_SevenDaysIsBelowThreshold(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 7)},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestNeverVisited_ThirtyOneDays(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 31)},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	ev := findings[0].Evidence.(types.NeverVisitedEvidence)
	assert.Equal(t, 31, ev.DaysSinceCreation)
}

func TestNeverVisited_VisitedOutletSkipped(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 20)},
		Events: []activity.Record{
			{Kind: activity.KindVisit, EntityType: types.EntityOutlet, EntityID: "out-1", OccurredAt: testNow.AddDate(0, 0, -3)},
		},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestNeverVisited_OnlyActiveOutlets(t *testing.T) {
	prospect := outlet("p-1", "north", 20)
	prospect.State = types.StateProspect
	hub := outlet("h-1", "north", 20)
	hub.Type = types.EntityHub

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{prospect, hub},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestNeverVisited_OutletOlderThanWindowSkipped(t *testing.T) {
	// The 90-day window cannot prove an outlet created 200 days ago was
	// never visited.
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-old", "north", 200)},
	})

	findings, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestNeverVisited_TruncatedVisitsIsError(t *testing.T) {
	feed := &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 10)},
		Limit:    1,
		Events: []activity.Record{
			{Kind: activity.KindVisit, EntityID: "a", OccurredAt: testNow.AddDate(0, 0, -2)},
			{Kind: activity.KindVisit, EntityID: "b", OccurredAt: testNow.AddDate(0, 0, -1)},
		},
	}
	snap := buildSnap(t, feed)

	_, err := NeverVisited{}.Detect(snap, types.DetectorsConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}
