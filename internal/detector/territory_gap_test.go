package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

func TestTerritoryGap_TwoUncoveredIsNoFinding(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("out-1", "north", 60),
			outlet("out-2", "north", 60),
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestTerritoryGap_ThreeUncoveredIsOneRegionFinding(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("out-1", "north", 60),
			outlet("out-2", "north", 60),
			outlet("out-3", "north", 60),
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1, "one finding per region, not per outlet")

	f := findings[0]
	assert.Equal(t, types.EntityRegion, f.EntityType)
	assert.Empty(t, f.EntityID)
	assert.Equal(t, "north", f.Region)
	ev := f.Evidence.(types.TerritoryGapEvidence)
	assert.Equal(t, 3, ev.UncoveredCount)
	assert.Equal(t, 14, ev.WindowDays)
}

func TestTerritoryGap_RecentVisitCoversOutlet(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("out-1", "north", 60),
			outlet("out-2", "north", 60),
			outlet("out-3", "north", 60),
		},
		Events: []activity.Record{
			{Kind: activity.KindVisit, EntityType: types.EntityOutlet, EntityID: "out-3", OccurredAt: testNow.AddDate(0, 0, -5)},
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings, "visit within 14 days drops the region below threshold")
}

func TestTerritoryGap_OldVisitDoesNotCover(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("out-1", "north", 60),
			outlet("out-2", "north", 60),
			outlet("out-3", "north", 60),
		},
		Events: []activity.Record{
			{Kind: activity.KindVisit, EntityType: types.EntityOutlet, EntityID: "out-3", OccurredAt: testNow.AddDate(0, 0, -20)},
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 3, findings[0].Evidence.(types.TerritoryGapEvidence).UncoveredCount)
}

func TestTerritoryGap_ExcludedStateIgnored(t *testing.T) {
	excluded := outlet("out-3", "north", 60)
	excluded.State = types.StateExcluded

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("out-1", "north", 60),
			outlet("out-2", "north", 60),
			excluded,
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestTerritoryGap_GroupsPerRegion(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{
			outlet("n-1", "north", 60), outlet("n-2", "north", 60), outlet("n-3", "north", 60),
			outlet("s-1", "south", 60), outlet("s-2", "south", 60), outlet("s-3", "south", 60),
			outlet("s-4", "south", 60), outlet("s-5", "south", 60),
			outlet("e-1", "east", 60), outlet("e-2", "east", 60),
		},
	})

	findings, err := TerritoryGap{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 2, "east stays below threshold")

	byRegion := map[string]int{}
	for _, f := range findings {
		byRegion[f.Region] = f.Evidence.(types.TerritoryGapEvidence).UncoveredCount
	}
	assert.Equal(t, 3, byRegion["north"])
	assert.Equal(t, 5, byRegion["south"])
}
