package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda-backend/domain/notification"
)

// fakeChannel records publishes and can be told to fail a destination.
type fakeChannel struct {
	published map[string][][]byte
	failFor   map[string]error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		published: make(map[string][][]byte),
		failFor:   make(map[string]error),
	}
}

func (c *fakeChannel) Publish(ctx context.Context, destination string, payload []byte) error {
	if err, ok := c.failFor[destination]; ok {
		return err
	}
	c.published[destination] = append(c.published[destination], payload)
	return nil
}

func TestDispatcher_Deliver_GlobalAndUser(t *testing.T) {
	// Arrange
	channel := newFakeChannel()
	dispatcher := NewDispatcher(channel, zap.NewNop())

	// Act
	n := dispatcher.Deliver(context.Background(), notification.KindCreated, "user-1", "Dentist", "New event created: Dentist", "evt-1")

	// Assert
	require.Len(t, channel.published[GlobalTopic], 1)
	require.Len(t, channel.published[UserTopic("user-1")], 1)
	assert.Equal(t, channel.published[GlobalTopic][0], channel.published[UserTopic("user-1")][0])

	var decoded notification.Notification
	require.NoError(t, json.Unmarshal(channel.published[GlobalTopic][0], &decoded))
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, notification.KindCreated, decoded.Kind)
	assert.Equal(t, "New event created: Dentist", decoded.Message)
}

func TestDispatcher_Deliver_NoUserMeansGlobalOnly(t *testing.T) {
	channel := newFakeChannel()
	dispatcher := NewDispatcher(channel, zap.NewNop())

	dispatcher.Deliver(context.Background(), notification.KindDeleted, "", "Dentist", "Event deleted: Dentist", "evt-1")

	assert.Len(t, channel.published, 1)
	assert.Len(t, channel.published[GlobalTopic], 1)
}

func TestDispatcher_Deliver_SwallowsPublishFailures(t *testing.T) {
	// A failed global publish must not stop the user publish, and no
	// failure may reach the caller.
	channel := newFakeChannel()
	channel.failFor[GlobalTopic] = errors.New("connection reset")
	dispatcher := NewDispatcher(channel, zap.NewNop())

	n := dispatcher.Deliver(context.Background(), notification.KindUpdated, "user-2", "Standup", "Event updated: Standup", "evt-2")

	assert.NotEmpty(t, n.ID)
	assert.Empty(t, channel.published[GlobalTopic])
	assert.Len(t, channel.published[UserTopic("user-2")], 1)
}

func TestUserTopic(t *testing.T) {
	assert.Equal(t, "/topic/notifications/user-1", UserTopic("user-1"))
}
