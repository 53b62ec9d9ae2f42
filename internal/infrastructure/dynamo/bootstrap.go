package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-social/internal/config"
)

const tableReadyTimeout = 30 * time.Second

type tableAdmin interface {
	dynamodb.DescribeTableAPIClient
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Bootstrap makes sure the webhook event ledger exists, is active and
// expires items through expires_at. An existing table is left as is.
func Bootstrap(ctx context.Context, client tableAdmin, tables config.DynamoTables) error {
	name := tables.StripeEvents
	created, err := ensureTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrEventID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrEventID), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, tableReadyTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}
	// TTL failures are logged, not fatal.
	if _, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(name),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(attrExpiresAt),
		},
	}); err != nil {
		slog.Warn("could not enable TTL", "table", name, "err", err)
	}
	return nil
}

// ensureTable reports whether it created the table.
func ensureTable(ctx context.Context, client tableAdmin, in *dynamodb.CreateTableInput) (bool, error) {
	if _, err := client.CreateTable(ctx, in); err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table %s: %w", aws.ToString(in.TableName), err)
	}
	slog.Info("created table", "table", aws.ToString(in.TableName))
	return true, nil
}
