package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"agenda-backend/application/ports"
	"agenda-backend/domain/calendar"
	"agenda-backend/pkg/common"
)

// EventHandler accepts calendar change events from sibling services and
// publishes them onto the bus for fan-out.
type EventHandler struct {
	publisher ports.Publisher
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewEventHandler creates the handler.
func NewEventHandler(publisher ports.Publisher, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Ingest validates the change event and puts it on the bus. The consumer
// picks it up asynchronously, so a 202 only means "accepted for delivery".
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var event calendar.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := h.validate.Struct(event); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "failed to encode event")
		return
	}

	if err := h.publisher.Publish(r.Context(), ports.TopicChangeEvents, payload); err != nil {
		h.logger.Error("failed to publish change event",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		common.RespondError(w, http.StatusServiceUnavailable, "EXTERNAL", "event bus unavailable")
		return
	}

	h.logger.Info("change event accepted",
		zap.String("eventId", event.ID),
		zap.String("type", string(event.Kind)),
	)
	common.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
