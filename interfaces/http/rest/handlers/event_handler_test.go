package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda-backend/application/ports"
	"agenda-backend/domain/calendar"
	"agenda-backend/domain/notification"
)

// fakePublisher records published messages and can be told to fail.
type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestEventHandler_Ingest(t *testing.T) {
	// Arrange
	publisher := &fakePublisher{}
	handler := NewEventHandler(publisher, zap.NewNop())
	body := `{"id":"evt-1","title":"Dentist","type":"CREATED","userId":"user-1","startDate":"2026-09-01","startTime":"14:00"}`
	rec := httptest.NewRecorder()

	// Act
	handler.Ingest(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body)))

	// Assert
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, publisher.topics, 1)
	assert.Equal(t, ports.TopicChangeEvents, publisher.topics[0])

	var event calendar.ChangeEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, notification.KindCreated, event.Kind)
}

func TestEventHandler_Ingest_RejectsInvalidEvents(t *testing.T) {
	publisher := &fakePublisher{}
	handler := NewEventHandler(publisher, zap.NewNop())

	for name, body := range map[string]string{
		"not json":      `{"id":`,
		"missing title": `{"id":"evt-2","type":"CREATED"}`,
		"missing type":  `{"id":"evt-3","title":"Dentist"}`,
		"unknown type":  `{"id":"evt-4","title":"Dentist","type":"MOVED"}`,
	} {
		rec := httptest.NewRecorder()
		handler.Ingest(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Empty(t, publisher.topics)
}

func TestEventHandler_Ingest_BusFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("bus down")}
	handler := NewEventHandler(publisher, zap.NewNop())
	body := `{"id":"evt-5","title":"Dentist","type":"UPDATED"}`
	rec := httptest.NewRecorder()

	handler.Ingest(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "event bus unavailable")
}
