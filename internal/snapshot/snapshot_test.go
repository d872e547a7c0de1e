package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/internal/store/memory"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

var snapDay = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func TestWriteSnapshot_PersistsAggregatedRow(t *testing.T) {
	st := memory.New()
	src := &StaticSource{Snapshots: map[string]types.KpiSnapshot{
		"#north": {TotalOrders: 12, Revenue: decimal.NewFromInt(1800)},
	}}
	agg := New(src, st, nil)

	scope := types.Scope{Region: "north"}
	snap, err := agg.WriteSnapshot(context.Background(), scope, snapDay)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", snap.Date)

	got, err := st.LatestSnapshot(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 12, got.TotalOrders)
	assert.True(t, got.Revenue.Equal(decimal.NewFromInt(1800)))
}

func TestWriteSnapshot_RerunOverwritesSameDay(t *testing.T) {
	st := memory.New()
	src := &StaticSource{Snapshots: map[string]types.KpiSnapshot{
		"#": {TotalOrders: 5},
	}}
	agg := New(src, st, nil)

	_, err := agg.WriteSnapshot(context.Background(), types.Scope{}, snapDay)
	require.NoError(t, err)

	src.Snapshots["#"] = types.KpiSnapshot{TotalOrders: 9}
	_, err = agg.WriteSnapshot(context.Background(), types.Scope{}, snapDay)
	require.NoError(t, err)

	got, err := st.LatestSnapshot(context.Background(), types.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 9, got.TotalOrders)
}

func TestWriteAll_ScopeFailuresAreIndependent(t *testing.T) {
	st := memory.New()
	src := &StaticSource{
		Snapshots: map[string]types.KpiSnapshot{
			"#north": {TotalOrders: 1},
			"#south": {TotalOrders: 2},
		},
		Errs: map[string]error{"#west": errors.New("aggregate timeout")},
	}
	agg := New(src, st, nil)

	scopes := []types.Scope{{Region: "north"}, {Region: "south"}, {Region: "west"}}
	written, err := agg.WriteAll(context.Background(), scopes, snapDay)
	require.Error(t, err)
	assert.Equal(t, 2, written, "healthy scopes still get their rows")

	_, err = st.LatestSnapshot(context.Background(), types.Scope{Region: "north"})
	assert.NoError(t, err)
	_, err = st.LatestSnapshot(context.Background(), types.Scope{Region: "west"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
