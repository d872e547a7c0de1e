package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// deliveries emits n delivery records for an entity spread across the given
// day range (inclusive ago bounds).
func deliveries(entityID string, n, fromDaysAgo, toDaysAgo int) []activity.Record {
	records := make([]activity.Record, 0, n)
	span := fromDaysAgo - toDaysAgo
	if span < 1 {
		span = 1
	}
	for i := 0; i < n; i++ {
		daysAgo := toDaysAgo + (i % span)
		records = append(records, activity.Record{
			Kind:       activity.KindDelivery,
			EntityType: types.EntityOutlet,
			EntityID:   entityID,
			OccurredAt: testNow.AddDate(0, 0, -daysAgo),
		})
	}
	return records
}

func TestOrderDrop_SixtyPercentDropTriggers(t *testing.T) {
	// 10 deliveries in days 31-60, 4 in days 0-30: 60% drop, prior >= 3.
	events := append(deliveries("out-1", 10, 59, 32), deliveries("out-1", 4, 29, 1)...)

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 120)},
		Events:   events,
	})

	findings, err := OrderDrop{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	ev := findings[0].Evidence.(types.OrderDropEvidence)
	assert.Equal(t, 10, ev.PriorCount)
	assert.Equal(t, 4, ev.RecentCount)
	assert.Equal(t, 60, ev.DropPercent)
}

func TestOrderDrop_SparsePriorHistoryDoesNotTrigger(t *testing.T) {
	// 2 deliveries in the prior window, 0 recent: full stop, but prior < 3.
	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 120)},
		Events:   deliveries("out-1", 2, 59, 32),
	})

	findings, err := OrderDrop{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestOrderDrop_ExactlyFiftyPercentTriggers(t *testing.T) {
	events := append(deliveries("out-1", 4, 59, 32), deliveries("out-1", 2, 29, 1)...)

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 120)},
		Events:   events,
	})

	findings, err := OrderDrop{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 50, findings[0].Evidence.(types.OrderDropEvidence).DropPercent)
}

func TestOrderDrop_BelowFiftyPercentDoesNotTrigger(t *testing.T) {
	events := append(deliveries("out-1", 3, 59, 32), deliveries("out-1", 2, 29, 1)...)

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 120)},
		Events:   events,
	})

	findings, err := OrderDrop{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings, "33% drop is below the 50% threshold")
}

func TestOrderDrop_SteadyCadenceDoesNotTrigger(t *testing.T) {
	events := append(deliveries("out-1", 5, 59, 32), deliveries("out-1", 5, 29, 1)...)

	snap := buildSnap(t, &activity.StaticFeed{
		Entities: []activity.Entity{outlet("out-1", "north", 120)},
		Events:   events,
	})

	findings, err := OrderDrop{}.Detect(snap, types.DetectorsConfig{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}
