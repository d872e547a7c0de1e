package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// InsertInsight writes a scored insight. Dedup is a conditional put on a
// marker item keyed by the dedup key: only one writer can create the marker,
// so concurrent scans cannot double-insert. Resolving or ignoring the insight
// deletes the marker and re-opens the key.
func (s *DynamoDBStore) InsertInsight(ctx context.Context, insight *types.RiskInsight) (bool, error) {
	id := ulid.Make().String()

	marker := map[string]ddbtypes.AttributeValue{
		"PK":         &ddbtypes.AttributeValueMemberS{Value: dedupPK(insight.DedupKey())},
		"SK":         &ddbtypes.AttributeValueMemberS{Value: dedupSK()},
		"insight_id": &ddbtypes.AttributeValueMemberS{Value: id},
	}
	if insight.ExpiresAt != nil {
		// The marker expires with the insight, so a TTL-reaped insight cannot
		// leave its dedup key blocked.
		marker["ttl"] = &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", insight.ExpiresAt.Unix())}
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                marker,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put dedup marker: %w", err)
	}

	insight.ID = id
	data, err := json.Marshal(insight)
	if err != nil {
		return false, fmt.Errorf("marshal insight: %w", err)
	}

	item := map[string]ddbtypes.AttributeValue{
		"PK":     &ddbtypes.AttributeValueMemberS{Value: insightPK(id)},
		"SK":     &ddbtypes.AttributeValueMemberS{Value: insightSK()},
		"GSI1PK": &ddbtypes.AttributeValueMemberS{Value: statusPK(insight.Status)},
		"GSI1SK": &ddbtypes.AttributeValueMemberS{Value: insightGSI1SK(insight.RiskScore, insight.CreatedAt, id)},
		"status": &ddbtypes.AttributeValueMemberS{Value: string(insight.Status)},
		"data":   &ddbtypes.AttributeValueMemberS{Value: string(data)},
	}
	if insight.ExpiresAt != nil {
		item["ttl"] = &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", insight.ExpiresAt.Unix())}
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		// Roll the marker back, otherwise the dedup key stays blocked with no
		// open insight behind it and the finding is suppressed on every rescan.
		s.releaseMarker(ctx, insight.DedupKey())
		return false, fmt.Errorf("put insight: %w", err)
	}
	return true, nil
}

// releaseMarker deletes a dedup marker item, best effort.
func (s *DynamoDBStore) releaseMarker(ctx context.Context, dedupKey string) {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: dedupPK(dedupKey)},
			"SK": &ddbtypes.AttributeValueMemberS{Value: dedupSK()},
		},
	}); err != nil {
		s.logger.Warn("failed to release dedup marker", "key", dedupKey, "error", err)
	}
}

// GetInsight loads one insight by ID.
func (s *DynamoDBStore) GetInsight(ctx context.Context, id string) (*types.RiskInsight, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: insightPK(id)},
			"SK": &ddbtypes.AttributeValueMemberS{Value: insightSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	if out.Item == nil {
		return nil, store.ErrNotFound
	}
	return unmarshalInsight(out.Item)
}

// QueryInsights queries the status GSI backwards for score-descending order,
// then applies the remaining filter fields client-side so all backends share
// the filter semantics in types.InsightFilter.
func (s *DynamoDBStore) QueryInsights(ctx context.Context, filter types.InsightFilter) ([]types.RiskInsight, error) {
	filter = filter.Normalized()
	now := time.Now().UTC()

	var out []types.RiskInsight
	var startKey map[string]ddbtypes.AttributeValue
	for {
		page, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.tableName,
			IndexName:              aws.String("GSI1"),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":pk": &ddbtypes.AttributeValueMemberS{Value: statusPK(filter.Status)},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query insights: %w", err)
		}

		for _, item := range page.Items {
			insight, err := unmarshalInsight(item)
			if err != nil {
				s.logger.Warn("skipping corrupt insight item", "error", err)
				continue
			}
			if !filter.Matches(*insight, now) {
				continue
			}
			out = append(out, *insight)
			if filter.Limit > 0 && len(out) == filter.Limit {
				return out, nil
			}
		}

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// UpdateInsightStatus applies open -> resolved/ignored and releases the dedup
// marker. The condition on the stored status makes concurrent transitions
// race-free.
func (s *DynamoDBStore) UpdateInsightStatus(ctx context.Context, id string, to types.InsightStatus) (*types.RiskInsight, error) {
	if !types.ValidTransition(types.StatusOpen, to) {
		return nil, fmt.Errorf("%w: open -> %s", store.ErrInvalidTransition, to)
	}

	insight, err := s.GetInsight(ctx, id)
	if err != nil {
		return nil, err
	}
	if insight.Status != types.StatusOpen {
		return nil, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, insight.Status, to)
	}

	dedupKey := insight.DedupKey()
	insight.Status = to
	data, err := json.Marshal(insight)
	if err != nil {
		return nil, fmt.Errorf("marshal insight: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: insightPK(id)},
			"SK": &ddbtypes.AttributeValueMemberS{Value: insightSK()},
		},
		UpdateExpression:    aws.String("SET #st = :to, GSI1PK = :gsipk, #data = :data"),
		ConditionExpression: aws.String("#st = :open"),
		ExpressionAttributeNames: map[string]string{
			"#st":   "status",
			"#data": "data",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":to":    &ddbtypes.AttributeValueMemberS{Value: string(to)},
			":open":  &ddbtypes.AttributeValueMemberS{Value: string(types.StatusOpen)},
			":gsipk": &ddbtypes.AttributeValueMemberS{Value: statusPK(to)},
			":data":  &ddbtypes.AttributeValueMemberS{Value: string(data)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: insight %s is no longer open", store.ErrInvalidTransition, id)
		}
		return nil, fmt.Errorf("update insight status: %w", err)
	}

	// The insight row is already terminal; a stale marker only suppresses
	// re-detection until its next release, so best effort is enough here.
	s.releaseMarker(ctx, dedupKey)
	return insight, nil
}

// Summarize delegates to QueryInsights and types.BuildSummary so counts never
// drift from query results.
func (s *DynamoDBStore) Summarize(ctx context.Context, filter types.InsightFilter) (types.RiskSummary, error) {
	filter.Limit = 0
	rows, err := s.QueryInsights(ctx, filter)
	if err != nil {
		return types.RiskSummary{}, err
	}
	return types.BuildSummary(rows), nil
}

func unmarshalInsight(item map[string]ddbtypes.AttributeValue) (*types.RiskInsight, error) {
	attr, ok := item["data"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("insight item missing data attribute")
	}
	var insight types.RiskInsight
	if err := json.Unmarshal([]byte(attr.Value), &insight); err != nil {
		return nil, fmt.Errorf("unmarshal insight: %w", err)
	}
	return &insight, nil
}
