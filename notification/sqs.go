package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the part of the SQS client the gateway uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSGateway enqueues the summary on an SQS queue for a downstream mailer.
type SQSGateway struct {
	client   SQSAPI
	queueURL string
}

func NewSQSGateway(client SQSAPI, queueURL string) *SQSGateway {
	return &SQSGateway{client: client, queueURL: queueURL}
}

// NewSQSClient loads the default AWS credential chain for region.
func NewSQSClient(ctx context.Context, region string) (*sqs.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

func (g *SQSGateway) Send(ctx context.Context, s Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	_, err = g.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(g.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"orderCorrelationId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.CorrelationID),
			},
			"persisted": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.FormatBool(s.Persisted)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
