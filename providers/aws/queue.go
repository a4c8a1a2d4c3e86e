package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/strata-io/strata/pkg/provider"
)

type QueueConfig struct {
	QueueName              string            `json:"queue_name"`
	VisibilityTimeout      *int              `json:"visibility_timeout"`
	MessageRetentionPeriod *int              `json:"message_retention_period"`
	Tags                   map[string]string `json:"tags"`
}

func (p *Provider) applyQueue(ctx context.Context, req *provider.ApplyRequest) (*provider.ApplyResponse, error) {
	var desired QueueConfig
	if err := decode(req.Desired, &desired); err != nil {
		return nil, err
	}
	if desired.QueueName == "" {
		desired.QueueName = req.Name
	}

	attrs := map[string]string{}
	if desired.VisibilityTimeout != nil {
		attrs["VisibilityTimeout"] = strconv.Itoa(*desired.VisibilityTimeout)
	}
	if desired.MessageRetentionPeriod != nil {
		attrs["MessageRetentionPeriod"] = strconv.Itoa(*desired.MessageRetentionPeriod)
	}

	if req.Prior != nil {
		url, err := stringID(req.Prior, "url")
		if err != nil {
			return nil, err
		}
		if len(attrs) > 0 {
			_, err := p.sqsClient.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
				QueueUrl:   &url,
				Attributes: attrs,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to update queue attributes: %w", err)
			}
		}
		return &provider.ApplyResponse{Identifiers: req.Prior}, nil
	}

	input := &sqs.CreateQueueInput{
		QueueName: &desired.QueueName,
	}
	if len(attrs) > 0 {
		input.Attributes = attrs
	}
	if len(desired.Tags) > 0 {
		input.Tags = desired.Tags
	}

	resp, err := p.sqsClient.CreateQueue(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}

	return &provider.ApplyResponse{
		Identifiers: map[string]any{
			"url":  *resp.QueueUrl,
			"name": desired.QueueName,
		},
	}, nil
}

func (p *Provider) destroyQueue(ctx context.Context, req *provider.DestroyRequest) error {
	url, err := stringID(req.Identifiers, "url")
	if err != nil {
		return err
	}
	if _, err := p.sqsClient.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: &url}); err != nil {
		return fmt.Errorf("failed to delete queue: %w", err)
	}
	return nil
}
