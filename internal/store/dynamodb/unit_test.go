package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// mockDDB is a minimal fake of the DDBAPI interface for unit testing.
type mockDDB struct {
	putItemFn       func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	getItemFn       func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	queryFn         func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	updateItemFn    func(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	deleteItemFn    func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	describeTableFn func(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	createTableFn   func(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	updateTTLFn     func(ctx context.Context, input *dynamodb.UpdateTimeToLiveInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

func (m *mockDDB) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFn != nil {
		return m.putItemFn(ctx, input, opts...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDB) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, input, opts...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDB) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, input, opts...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDDB) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFn != nil {
		return m.updateItemFn(ctx, input, opts...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDDB) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFn != nil {
		return m.deleteItemFn(ctx, input, opts...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDDB) DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFn != nil {
		return m.describeTableFn(ctx, input, opts...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (m *mockDDB) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, input, opts...)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDDB) UpdateTimeToLive(ctx context.Context, input *dynamodb.UpdateTimeToLiveInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	if m.updateTTLFn != nil {
		return m.updateTTLFn(ctx, input, opts...)
	}
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

func testInsight() *types.RiskInsight {
	return &types.RiskInsight{
		EntityType: types.EntityOutlet,
		EntityID:   "out-1",
		Region:     "north",
		RiskType:   types.RiskNeverVisited,
		RiskScore:  45,
		RiskLevel:  types.LevelMedium,
		Headline:   "Outlet out-1 has never been visited",
		SourceData: map[string]any{"daysSinceCreation": 12},
		Status:     types.StatusOpen,
		CreatedAt:  time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestInsertInsight_WritesMarkerThenItem(t *testing.T) {
	var puts []*dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			puts = append(puts, input)
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	insight := testInsight()
	created, err := s.InsertInsight(context.Background(), insight)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, insight.ID)
	require.Len(t, puts, 2)

	marker := puts[0]
	assert.Equal(t, "DEDUP#outlet#out-1#store_never_visited",
		marker.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value)
	assert.Equal(t, "attribute_not_exists(PK)", *marker.ConditionExpression)

	item := puts[1]
	assert.Equal(t, "STATUS#open", item.Item["GSI1PK"].(*ddbtypes.AttributeValueMemberS).Value)
	gsi1sk := item.Item["GSI1SK"].(*ddbtypes.AttributeValueMemberS).Value
	assert.Equal(t, "045", gsi1sk[:3], "score is zero-padded for lexicographic ordering")
}

func TestInsertInsight_DuplicateMarkerSuppresses(t *testing.T) {
	var insightPuts int
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if input.ConditionExpression != nil {
				return nil, &ddbtypes.ConditionalCheckFailedException{}
			}
			insightPuts++
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	created, err := s.InsertInsight(context.Background(), testInsight())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, insightPuts, "no insight item is written when the marker exists")
}

func TestInsertInsight_FailedInsightPutReleasesMarker(t *testing.T) {
	markers := map[string]bool{}
	failNextInsightPut := true
	var released *dynamodb.DeleteItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			if input.ConditionExpression != nil {
				pk := input.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
				if markers[pk] {
					return nil, &ddbtypes.ConditionalCheckFailedException{}
				}
				markers[pk] = true
				return &dynamodb.PutItemOutput{}, nil
			}
			if failNextInsightPut {
				failNextInsightPut = false
				return nil, errors.New("throughput exceeded")
			}
			return &dynamodb.PutItemOutput{}, nil
		},
		deleteItemFn: func(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			released = input
			delete(markers, input.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value)
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	_, err := s.InsertInsight(context.Background(), testInsight())
	require.Error(t, err)
	require.NotNil(t, released, "marker must be rolled back when the insight write fails")
	assert.Equal(t, "DEDUP#outlet#out-1#store_never_visited",
		released.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value)

	// The same finding on the next scan must not be suppressed by the leftover
	// marker.
	created, err := s.InsertInsight(context.Background(), testInsight())
	require.NoError(t, err)
	assert.True(t, created, "retry after a transient failure creates the insight")
}

func TestInsertInsight_MarkerExpiresWithInsight(t *testing.T) {
	var puts []*dynamodb.PutItemInput
	mock := &mockDDB{
		putItemFn: func(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			puts = append(puts, input)
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	insight := testInsight()
	expires := insight.CreatedAt.Add(30 * 24 * time.Hour)
	insight.ExpiresAt = &expires

	created, err := s.InsertInsight(context.Background(), insight)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, puts, 2)

	want := strconv.FormatInt(expires.Unix(), 10)
	markerTTL, ok := puts[0].Item["ttl"].(*ddbtypes.AttributeValueMemberN)
	require.True(t, ok, "marker must carry the insight's ttl so an expired insight frees its dedup key")
	assert.Equal(t, want, markerTTL.Value)
	itemTTL := puts[1].Item["ttl"].(*ddbtypes.AttributeValueMemberN)
	assert.Equal(t, want, itemTTL.Value)
}

func TestGetInsight_NotFound(t *testing.T) {
	s := NewWithClient(&mockDDB{}, "test-table")

	_, err := s.GetInsight(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateInsightStatus_ReleasesMarker(t *testing.T) {
	insight := testInsight()
	insight.ID = "01TEST"
	data, err := json.Marshal(insight)
	require.NoError(t, err)

	var deleted *dynamodb.DeleteItemInput
	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: map[string]ddbtypes.AttributeValue{
				"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
			}}, nil
		},
		deleteItemFn: func(_ context.Context, input *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			deleted = input
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	updated, err := s.UpdateInsightStatus(context.Background(), "01TEST", types.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolved, updated.Status)
	require.NotNil(t, deleted, "dedup marker must be released")
	assert.Equal(t, "DEDUP#outlet#out-1#store_never_visited",
		deleted.Key["PK"].(*ddbtypes.AttributeValueMemberS).Value)
}

func TestUpdateInsightStatus_TerminalInsightRejected(t *testing.T) {
	insight := testInsight()
	insight.ID = "01TEST"
	insight.Status = types.StatusResolved
	data, err := json.Marshal(insight)
	require.NoError(t, err)

	mock := &mockDDB{
		getItemFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: map[string]ddbtypes.AttributeValue{
				"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
			}}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	_, err = s.UpdateInsightStatus(context.Background(), "01TEST", types.StatusIgnored)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestUpdateInsightStatus_OpenIsNotATarget(t *testing.T) {
	s := NewWithClient(&mockDDB{}, "test-table")

	_, err := s.UpdateInsightStatus(context.Background(), "01TEST", types.StatusOpen)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestQueryInsights_AppliesClientSideFilter(t *testing.T) {
	north := testInsight()
	north.ID = "01A"
	south := testInsight()
	south.ID = "01B"
	south.EntityID = "out-2"
	south.Region = "south"

	var items []map[string]ddbtypes.AttributeValue
	for _, i := range []*types.RiskInsight{north, south} {
		data, err := json.Marshal(i)
		require.NoError(t, err)
		items = append(items, map[string]ddbtypes.AttributeValue{
			"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
		})
	}
	mock := &mockDDB{
		queryFn: func(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, "GSI1", *input.IndexName)
			return &dynamodb.QueryOutput{Items: items}, nil
		},
	}
	s := NewWithClient(mock, "test-table")

	got, err := s.QueryInsights(context.Background(), types.InsightFilter{Region: "south"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "out-2", got[0].EntityID)
}
