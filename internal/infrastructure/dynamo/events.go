package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-social/internal/domain"
)

const (
	attrEventID   = "event_id"
	attrExpiresAt = "expires_at"

	// Stripe retries deliveries for up to three days.
	eventRetention = 7 * 24 * time.Hour
)

type eventsAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// EventLedger records processed payment webhook events.
// PK: event_id. Items expire through the expires_at TTL attribute.
type EventLedger struct {
	client    eventsAPI
	tableName string
	now       func() time.Time
}

func NewEventLedger(client *dynamodb.Client, tableName string) *EventLedger {
	return &EventLedger{client: client, tableName: tableName, now: time.Now}
}

// MarkProcessed stores ev unless its id is already present. It reports
// whether this call recorded the event.
func (l *EventLedger) MarkProcessed(ctx context.Context, ev domain.StripeEvent) (bool, error) {
	now := l.now().UTC()
	ev.ProcessedAt = now
	ev.ExpiresAt = now.Add(eventRetention).Unix()

	item, err := attributevalue.MarshalMap(ev)
	if err != nil {
		return false, fmt.Errorf("marshal stripe event: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrEventID,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("put stripe event: %w", err)
	}
	return true, nil
}

// Release forgets eventID so a redelivery is processed again.
func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			attrEventID: &types.AttributeValueMemberS{Value: eventID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete stripe event: %w", err)
	}
	return nil
}
