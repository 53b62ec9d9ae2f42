package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-api-social/internal/config"
	"github.com/go-api-social/internal/infrastructure/awsconf"
)

// NewClient returns a DynamoDB client, pointed at LocalStack when
// AWS_ENDPOINT_URL is set.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("dynamodb: %w", err)
	}
	endpoint := awsconf.Endpoint(cfg)
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}
