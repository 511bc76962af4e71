// Package fanout consumes calendar change events from the bus and turns
// each one into a user-facing notification.
package fanout

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"agenda-backend/application/notify"
	"agenda-backend/application/ports"
	"agenda-backend/domain/calendar"
	"agenda-backend/domain/notification"
)

// Consumer subscribes to the change-event topic and maps each event into a
// notification through the shared dispatcher. Malformed events are logged
// and dropped; the subscription is never blocked or crashed by a bad
// message.
type Consumer struct {
	subscriber ports.Subscriber
	dispatcher *notify.Dispatcher
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewConsumer creates a fan-out consumer.
func NewConsumer(subscriber ports.Subscriber, dispatcher *notify.Dispatcher, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		dispatcher: dispatcher,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Run subscribes to the change-event topic and processes messages one at a
// time, in delivery order, until ctx is cancelled or the subscription is
// closed.
func (c *Consumer) Run(ctx context.Context) {
	messages, cancel := c.subscriber.Subscribe(ports.TopicChangeEvents)
	defer cancel()

	c.logger.Info("fan-out consumer started", zap.String("topic", ports.TopicChangeEvents))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("fan-out consumer stopping")
			return
		case msg, ok := <-messages:
			if !ok {
				c.logger.Info("change-event subscription closed")
				return
			}
			c.Handle(ctx, msg.Payload)
		}
	}
}

// Handle processes a single serialized ChangeEvent. Errors are contained
// here: the event is dropped with a log line and the caller moves on.
func (c *Consumer) Handle(ctx context.Context, payload []byte) {
	var event calendar.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Warn("dropping undecodable change event", zap.Error(err))
		return
	}

	if err := c.validate.Struct(event); err != nil {
		c.logger.Warn("dropping invalid change event",
			zap.String("eventId", event.ID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		return
	}

	message := notification.MessageFor(event.Kind, event.Title)
	n := c.dispatcher.Deliver(ctx, event.Kind, event.UserID, event.Title, message, event.ID)

	c.logger.Info("change event fanned out",
		zap.String("eventId", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("userId", event.UserID),
		zap.String("notificationId", n.ID),
	)
}
