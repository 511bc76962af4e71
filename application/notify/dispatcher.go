// Package notify implements the single notification construction and
// delivery contract. Every notification, whether from fan-out, a reminder
// cycle or a manual test, goes through Dispatcher.Deliver, which is the only
// code path allowed to talk to the realtime channel. That keeps the additive
// fan-out invariant (per-user delivery always implies a global delivery) in
// one place.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"agenda-backend/application/ports"
	"agenda-backend/domain/notification"
)

const (
	// GlobalTopic is the broadcast address every notification is pushed to.
	GlobalTopic = "/topic/notifications"

	// publishTimeout bounds each publish attempt so a hung transport cannot
	// stall the bus consumer or a scheduler cycle.
	publishTimeout = 5 * time.Second
)

// UserTopic returns the recipient-scoped address for a user.
func UserTopic(userID string) string {
	return GlobalTopic + "/" + userID
}

// Dispatcher builds notifications and pushes them to the realtime channel.
// It holds no mutable state and is safe for concurrent use from the bus
// consumer and the scheduler.
type Dispatcher struct {
	channel ports.Channel
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher over the given channel.
func NewDispatcher(channel ports.Channel, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		logger:  logger,
	}
}

// Deliver constructs a Notification and performs exactly two publish
// attempts: the global topic always, the user topic when userID is present.
// Transport failures are logged and swallowed; they never propagate to the
// caller, so a failed push cannot nack a bus message or abort a cycle.
func (d *Dispatcher) Deliver(ctx context.Context, kind notification.Kind, userID, title, message, eventID string) notification.Notification {
	n := notification.New(kind, userID, title, message, eventID)

	payload, err := json.Marshal(n)
	if err != nil {
		d.logger.Error("failed to marshal notification",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return n
	}

	d.publish(ctx, GlobalTopic, payload, n)
	if userID != "" {
		d.publish(ctx, UserTopic(userID), payload, n)
	}

	return n
}

func (d *Dispatcher) publish(ctx context.Context, destination string, payload []byte, n notification.Notification) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.channel.Publish(pubCtx, destination, payload); err != nil {
		d.logger.Warn("notification publish failed",
			zap.String("destination", destination),
			zap.String("notificationId", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("notification published",
		zap.String("destination", destination),
		zap.String("notificationId", n.ID),
		zap.String("kind", string(n.Kind)),
	)
}
