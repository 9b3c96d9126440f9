// Package queue publishes alert escalation events to SQS for downstream
// consumers (audit, dashboards).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"outagewatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertEventPublisher hands escalation events to a downstream sink.
type AlertEventPublisher interface {
	Publish(ctx context.Context, event types.AlertEvent) error
}

// SQSAlertPublisher serializes AlertEvents as JSON onto a single queue.
type SQSAlertPublisher struct {
	client   SQSSender
	queueURL string
	clock    clockwork.Clock
	logger   *slog.Logger
}

var _ AlertEventPublisher = (*SQSAlertPublisher)(nil)

// NewSQSAlertPublisher creates a publisher targeting queueURL.
func NewSQSAlertPublisher(client SQSSender, queueURL string, clock clockwork.Clock, logger *slog.Logger) *SQSAlertPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSAlertPublisher{
		client:   client,
		queueURL: queueURL,
		clock:    clock,
		logger:   logger,
	}
}

// Publish fills in EventID and OccurredAt when unset and sends the event.
func (p *SQSAlertPublisher) Publish(ctx context.Context, event types.AlertEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.clock.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AlertEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"tier": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Tier)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send AlertEvent to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "alert event published",
		"event_id", event.EventID,
		"site_id", event.SiteID,
		"tier", string(event.Tier),
		"email_sent", event.EmailSent,
		"sms_sent", event.SMSSent,
	)
	return nil
}

// NopPublisher drops every event. It is used when no queue is configured.
type NopPublisher struct{}

var _ AlertEventPublisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, types.AlertEvent) error { return nil }
