package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroker_PublishReachesAllSubscribers(t *testing.T) {
	broker := NewBroker(zap.NewNop())
	defer broker.Close()

	first, cancelFirst := broker.Subscribe("events")
	defer cancelFirst()
	second, cancelSecond := broker.Subscribe("events")
	defer cancelSecond()
	other, cancelOther := broker.Subscribe("other-topic")
	defer cancelOther()

	require.NoError(t, broker.Publish(context.Background(), "events", []byte("hello")))

	msg := <-first
	assert.Equal(t, "events", msg.Topic)
	assert.Equal(t, []byte("hello"), msg.Payload)

	msg = <-second
	assert.Equal(t, []byte("hello"), msg.Payload)

	select {
	case <-other:
		t.Fatal("message leaked to an unrelated topic")
	default:
	}
}

func TestBroker_PreservesPublishOrder(t *testing.T) {
	broker := NewBroker(zap.NewNop())
	defer broker.Close()

	messages, cancel := broker.Subscribe("events")
	defer cancel()

	for i := 0; i < 10; i++ {
		require.NoError(t, broker.Publish(context.Background(), "events", []byte(fmt.Sprintf("msg-%d", i))))
	}

	for i := 0; i < 10; i++ {
		msg := <-messages
		assert.Equal(t, fmt.Sprintf("msg-%d", i), string(msg.Payload))
	}
}

func TestBroker_CancelDetachesSubscription(t *testing.T) {
	broker := NewBroker(zap.NewNop())
	defer broker.Close()

	messages, cancel := broker.Subscribe("events")
	cancel()

	_, open := <-messages
	assert.False(t, open)

	// Publishing after the cancel is a no-op, not a panic.
	assert.NoError(t, broker.Publish(context.Background(), "events", []byte("late")))

	// A second cancel is safe.
	cancel()
}

func TestBroker_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	broker := NewBroker(zap.NewNop())
	defer broker.Close()

	messages, cancel := broker.Subscribe("events")
	defer cancel()

	// Overfill the subscription buffer; the publisher must keep going.
	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, broker.Publish(context.Background(), "events", []byte("m")))
	}

	assert.Len(t, messages, subscriberBuffer)
}

func TestBroker_CloseEndsSubscriptions(t *testing.T) {
	broker := NewBroker(zap.NewNop())

	messages, _ := broker.Subscribe("events")
	broker.Close()

	_, open := <-messages
	assert.False(t, open)

	// Subscribing after close yields an already-closed channel.
	late, _ := broker.Subscribe("events")
	_, open = <-late
	assert.False(t, open)

	assert.NoError(t, broker.Publish(context.Background(), "events", []byte("late")))
}
