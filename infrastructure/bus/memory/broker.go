// Package memory provides an in-process event broker backing the bus in
// single-process deployments and in tests. Messages published to a topic
// reach every live subscriber of that topic in publish order per producer.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"agenda-backend/application/ports"
)

// subscriberBuffer bounds each subscription channel. A subscriber that
// falls this far behind starts losing messages rather than blocking
// producers.
const subscriberBuffer = 256

// Broker is an ordered topic-based publish/subscribe hub. It implements
// both ports.Publisher and ports.Subscriber.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]chan ports.Message
	nextID      int
	closed      bool
	logger      *zap.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		subscribers: make(map[string]map[int]chan ports.Message),
		logger:      logger,
	}
}

// Publish delivers payload to every current subscriber of topic. A full
// subscriber channel drops the message for that subscriber with a log line;
// publishers are never blocked by slow consumers.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	msg := ports.Message{Topic: topic, Payload: payload}
	for id, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			b.logger.Warn("dropping message for slow subscriber",
				zap.String("topic", topic),
				zap.Int("subscriberId", id),
			)
		}
	}
	return nil
}

// Subscribe registers a new subscription on topic. The returned cancel func
// detaches the subscription and closes its channel.
func (b *Broker) Subscribe(topic string) (<-chan ports.Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ports.Message, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[int]chan ports.Message)
	}
	id := b.nextID
	b.nextID++
	b.subscribers[topic][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[topic][id]; ok {
			delete(b.subscribers[topic], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close shuts the broker down, closing every subscription channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subscribers, topic)
	}
}
