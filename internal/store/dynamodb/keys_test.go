package dynamodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

func TestInsightGSI1SK_OrdersByScore(t *testing.T) {
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	low := insightGSI1SK(7, at, "a")
	mid := insightGSI1SK(45, at, "b")
	high := insightGSI1SK(92, at, "c")

	assert.Less(t, low, mid)
	assert.Less(t, mid, high, "zero-padding keeps lexicographic and numeric order aligned")
}

func TestInsightGSI1SK_TieBreaksOnCreatedAt(t *testing.T) {
	early := insightGSI1SK(45, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), "a")
	late := insightGSI1SK(45, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), "a")
	assert.Less(t, early, late)
}

func TestSnapshotKeys(t *testing.T) {
	scope := types.Scope{Brand: "acme", Region: "north"}
	assert.Equal(t, "SNAPSCOPE#acme#north", snapshotPK(scope))
	assert.Equal(t, "SNAP#2026-03-10", snapshotSK("2026-03-10"))
	assert.Equal(t, "SNAPSCOPE##", snapshotPK(types.Scope{}), "global scope has empty fragments")
}
