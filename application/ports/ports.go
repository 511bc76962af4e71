// Package ports declares the interfaces through which the notification
// subsystem talks to its external collaborators. The calendar store, the
// event bus transport and the realtime channel are all consumed through
// these ports; their internals live elsewhere.
package ports

import (
	"context"

	"agenda-backend/domain/calendar"
)

// TopicChangeEvents is the bus topic carrying calendar change events.
const TopicChangeEvents = "event-notifications"

// Message is one record delivered by a bus subscription.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher publishes a record to a bus topic. Delivery is at-least-once to
// live subscribers; ordering is preserved per producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber creates bus subscriptions. The returned channel is closed when
// the subscription ends; the cancel func detaches it.
type Subscriber interface {
	Subscribe(topic string) (<-chan Message, func())
}

// CalendarSource is the pull interface of the calendar service: the events
// starting within the lookahead horizon, current state only.
type CalendarSource interface {
	Upcoming(ctx context.Context) ([]calendar.UpcomingEvent, error)
}

// Channel is the realtime push transport. Destination is a topic-style
// address; delivery is best-effort and must not block beyond the transport's
// own timeout.
type Channel interface {
	Publish(ctx context.Context, destination string, payload []byte) error
}
