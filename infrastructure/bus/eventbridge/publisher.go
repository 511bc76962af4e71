// Package eventbridge implements the bus publisher on AWS EventBridge for
// the serverless deployment flavor, where the push lambda consumes the
// routed events.
package eventbridge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// source identifies this application as the event producer.
const source = "agenda.calendar"

// Publisher sends bus records to an EventBridge bus. The topic becomes the
// entry's detail type so rules can route per topic.
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates an EventBridge-backed publisher.
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish sends a single record.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.PublishBatch(ctx, topic, [][]byte{payload})
}

// PublishBatch sends multiple records, split per the PutEvents limit of 10
// entries per call.
func (p *Publisher) PublishBatch(ctx context.Context, topic string, payloads [][]byte) error {
	const batchSize = 10

	for i := 0; i < len(payloads); i += batchSize {
		end := i + batchSize
		if end > len(payloads) {
			end = len(payloads)
		}
		if err := p.putEvents(ctx, topic, payloads[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) putEvents(ctx context.Context, topic string, payloads [][]byte) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(payloads))
	for _, payload := range payloads {
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(source),
			DetailType:   aws.String(topic),
			Detail:       aws.String(string(payload)),
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("publish to EventBridge bus %q: %w", p.eventBusName, err)
	}

	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("EventBridge rejected entry",
					zap.String("topic", topic),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("EventBridge rejected %d of %d entries", result.FailedEntryCount, len(entries))
	}
	return nil
}
