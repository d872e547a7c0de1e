package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// snapshotItem is the attributevalue shape of one KPI row. Revenue travels as
// a decimal string to avoid float drift.
type snapshotItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	Date              string `dynamodbav:"snapshot_date"`
	Brand             string `dynamodbav:"brand"`
	Region            string `dynamodbav:"region"`
	TotalEntities     int    `dynamodbav:"total_entities"`
	ActiveEntities    int    `dynamodbav:"active_entities"`
	InactiveEntities  int    `dynamodbav:"inactive_entities"`
	TotalOrders       int    `dynamodbav:"total_orders"`
	UnpaidOrders      int    `dynamodbav:"unpaid_orders"`
	Revenue           string `dynamodbav:"revenue"`
	SameDayDeliveries int    `dynamodbav:"same_day_deliveries"`
	LowStockItems     int    `dynamodbav:"low_stock_items"`
	CreatedAtUnix     int64  `dynamodbav:"created_at"`
}

// UpsertSnapshot writes one daily KPI row; a plain put overwrites reruns for
// the same day.
func (s *DynamoDBStore) UpsertSnapshot(ctx context.Context, snap types.KpiSnapshot) error {
	if snap.Date == "" {
		return fmt.Errorf("dynamodb: snapshot date is required")
	}

	item, err := attributevalue.MarshalMap(snapshotItem{
		PK:                snapshotPK(snap.Scope),
		SK:                snapshotSK(snap.Date),
		Date:              snap.Date,
		Brand:             snap.Scope.Brand,
		Region:            snap.Scope.Region,
		TotalEntities:     snap.TotalEntities,
		ActiveEntities:    snap.ActiveEntities,
		InactiveEntities:  snap.InactiveEntities,
		TotalOrders:       snap.TotalOrders,
		UnpaidOrders:      snap.UnpaidOrders,
		Revenue:           snap.Revenue.String(),
		SameDayDeliveries: snap.SameDayDeliveries,
		LowStockItems:     snap.LowStockItems,
		CreatedAtUnix:     snap.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a scope. The sort key
// embeds the date, so a backwards scan of one item suffices.
func (s *DynamoDBStore) LatestSnapshot(ctx context.Context, scope types.Scope) (*types.KpiSnapshot, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk":     &ddbtypes.AttributeValueMemberS{Value: snapshotPK(scope)},
			":prefix": &ddbtypes.AttributeValueMemberS{Value: prefixSnap},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, store.ErrNotFound
	}
	return unmarshalSnapshot(out.Items[0])
}

// SnapshotTrend returns a scope's snapshots from the last N days, oldest first.
func (s *DynamoDBStore) SnapshotTrend(ctx context.Context, scope types.Scope, days int) ([]types.KpiSnapshot, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(types.SnapshotDateFormat)

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND SK >= :cutoff"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk":     &ddbtypes.AttributeValueMemberS{Value: snapshotPK(scope)},
			":cutoff": &ddbtypes.AttributeValueMemberS{Value: snapshotSK(cutoff)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshot trend: %w", err)
	}

	snaps := make([]types.KpiSnapshot, 0, len(out.Items))
	for _, item := range out.Items {
		snap, err := unmarshalSnapshot(item)
		if err != nil {
			s.logger.Warn("skipping corrupt snapshot item", "error", err)
			continue
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

func unmarshalSnapshot(item map[string]ddbtypes.AttributeValue) (*types.KpiSnapshot, error) {
	var row snapshotItem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	revenue, err := decimal.NewFromString(row.Revenue)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot revenue %q: %w", row.Revenue, err)
	}
	return &types.KpiSnapshot{
		Date:              row.Date,
		Scope:             types.Scope{Brand: row.Brand, Region: row.Region},
		TotalEntities:     row.TotalEntities,
		ActiveEntities:    row.ActiveEntities,
		InactiveEntities:  row.InactiveEntities,
		TotalOrders:       row.TotalOrders,
		UnpaidOrders:      row.UnpaidOrders,
		Revenue:           revenue,
		SameDayDeliveries: row.SameDayDeliveries,
		LowStockItems:     row.LowStockItems,
		CreatedAt:         time.Unix(row.CreatedAtUnix, 0).UTC(),
	}, nil
}
