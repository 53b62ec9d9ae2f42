package sns

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-api-social/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSNS struct{ inputs []*sns.PublishInput }

func (r *recordingSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	r.inputs = append(r.inputs, in)
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestPublishMembershipUpgraded(t *testing.T) {
	rec := &recordingSNS{}
	p := &Publisher{client: rec, topicARN: "arn:aws:sns:us-east-1:000000000000:membership"}
	ev := domain.MembershipUpgraded{
		Type:       domain.EventMembershipUpgraded,
		UserID:     5,
		Source:     "webhook",
		SessionID:  "cs_1",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishMembershipUpgraded(context.Background(), ev))
	require.Len(t, rec.inputs, 1)
	in := rec.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:membership", aws.ToString(in.TopicArn))
	assert.Equal(t, domain.EventMembershipUpgraded, aws.ToString(in.MessageAttributes["event_type"].StringValue))

	var got domain.MembershipUpgraded
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &got))
	assert.Equal(t, ev, got)
}

func TestPublishMembershipUpgraded_NoTopic(t *testing.T) {
	rec := &recordingSNS{}
	p := &Publisher{client: rec}
	require.NoError(t, p.PublishMembershipUpgraded(context.Background(), domain.MembershipUpgraded{}))
	assert.Empty(t, rec.inputs)
}
