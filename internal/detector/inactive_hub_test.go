package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

func hub(id string, updatedDaysAgo int) activity.Entity {
	return activity.Entity{
		Type:      types.EntityHub,
		ID:        id,
		State:     types.StateActive,
		Region:    "north",
		CreatedAt: testNow.AddDate(0, 0, -200),
		UpdatedAt: testNow.AddDate(0, 0, -updatedDaysAgo),
	}
}

func TestInactiveHub_ThirtyOneDaysFlagged(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{hub("h-1", 31)},
	})

	findings, err := InactiveHub{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	ev := findings[0].Evidence.(types.InactiveHubEvidence)
	assert.Equal(t, 31, ev.DaysInactive)
}

func TestInactiveHub_RecentUpdateNotFlagged(t *testing.T) {
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{hub("h-1", 29)},
	})

	findings, err := InactiveHub{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestInactiveHub_NonActiveHubSkipped(t *testing.T) {
	closed := hub("h-1", 60)
	closed.State = types.StateClosed

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{closed},
	})

	findings, err := InactiveHub{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAll_RespectsDisabledList(t *testing.T) {
	detectors := All(types.DetectorsConfig{Disabled: []string{"inactive_hub", "territory_gap"}})

	names := make([]string, 0, len(detectors))
	for _, d := range detectors {
		names = append(names, d.Name())
	}
	assert.ElementsMatch(t, []string{"never_visited", "order_frequency_drop", "prospect_cluster"}, names)
}
