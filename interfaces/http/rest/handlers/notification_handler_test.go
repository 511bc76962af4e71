package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda-backend/application/notify"
	"agenda-backend/application/schedule"
	"agenda-backend/domain/calendar"
	"agenda-backend/domain/notification"
)

// recordingChannel captures publishes by destination.
type recordingChannel struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{published: make(map[string][][]byte)}
}

func (c *recordingChannel) Publish(ctx context.Context, destination string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[destination] = append(c.published[destination], payload)
	return nil
}

func (c *recordingChannel) count(destination string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published[destination])
}

type emptySource struct{}

func (emptySource) Upcoming(ctx context.Context) ([]calendar.UpcomingEvent, error) {
	return nil, nil
}

func newHandler(t *testing.T) (*NotificationHandler, *recordingChannel) {
	t.Helper()
	channel := newRecordingChannel()
	dispatcher := notify.NewDispatcher(channel, zap.NewNop())
	scheduler, err := schedule.New(emptySource{}, dispatcher, schedule.Config{Interval: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	return NewNotificationHandler(dispatcher, scheduler, zap.NewNop()), channel
}

func TestNotificationHandler_Health(t *testing.T) {
	handler, _ := newHandler(t)
	rec := httptest.NewRecorder()

	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"UP"`)
	assert.Contains(t, rec.Body.String(), "notification-service")
}

func TestNotificationHandler_Test(t *testing.T) {
	handler, channel := newHandler(t)
	body := `{"userId":"user-1","title":"Ping","message":"Hello"}`
	rec := httptest.NewRecorder()

	handler.Test(rec, httptest.NewRequest(http.MethodPost, "/api/notifications/test", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, channel.count(notify.GlobalTopic))
	assert.Equal(t, 1, channel.count(notify.UserTopic("user-1")))

	var resp struct {
		Success bool                      `json:"success"`
		Data    notification.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, notification.KindTest, resp.Data.Kind)
	assert.Equal(t, "Hello", resp.Data.Message)
}

func TestNotificationHandler_Test_DefaultsMessage(t *testing.T) {
	handler, _ := newHandler(t)
	rec := httptest.NewRecorder()

	handler.Test(rec, httptest.NewRequest(http.MethodPost, "/api/notifications/test", strings.NewReader(`{"userId":"user-1","title":"Ping"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This is a test notification")
}

func TestNotificationHandler_Test_RejectsInvalidBody(t *testing.T) {
	handler, channel := newHandler(t)

	for name, body := range map[string]string{
		"not json":       `{"userId":`,
		"missing userId": `{"title":"Ping"}`,
		"missing title":  `{"userId":"user-1"}`,
	} {
		rec := httptest.NewRecorder()
		handler.Test(rec, httptest.NewRequest(http.MethodPost, "/api/notifications/test", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Equal(t, 0, channel.count(notify.GlobalTopic))
}

func TestNotificationHandler_TestReminder(t *testing.T) {
	handler, channel := newHandler(t)
	rec := httptest.NewRecorder()

	handler.TestReminder(rec, httptest.NewRequest(http.MethodPost, "/api/notifications/test-reminder", strings.NewReader(`{"userId":"user-1","title":"Demo","minutesUntil":45}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `In 1 hour:`)
	assert.Equal(t, 1, channel.count(notify.UserTopic("user-1")))
}

func TestNotificationHandler_TestReminder_DefaultsToThirtyMinutes(t *testing.T) {
	handler, _ := newHandler(t)
	rec := httptest.NewRecorder()

	handler.TestReminder(rec, httptest.NewRequest(http.MethodPost, "/api/notifications/test-reminder", strings.NewReader(`{"userId":"user-1","title":"Demo"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `In 30 min:`)
}
