// Package handlers implements the HTTP handlers of the notification
// service: health, event ingest and the manual trigger surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"agenda-backend/application/notify"
	"agenda-backend/application/schedule"
	"agenda-backend/domain/notification"
	"agenda-backend/pkg/common"
)

// NotificationHandler serves the notification service's own endpoints: a
// status document and the manual test triggers that bypass the normal
// pipelines.
type NotificationHandler struct {
	dispatcher *notify.Dispatcher
	scheduler  *schedule.Scheduler
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewNotificationHandler creates the handler.
func NewNotificationHandler(dispatcher *notify.Dispatcher, scheduler *schedule.Scheduler, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		scheduler:  scheduler,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Health reports the service status document.
func (h *NotificationHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "UP",
		"service":   "notification-service",
		"websocket": "enabled",
		"reminders": "active",
	})
}

// testRequest is the body of the manual test-notification trigger.
type testRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Message string `json:"message"`
}

// Test delivers a single TEST notification through the normal delivery
// contract, for smoke-testing the push path end to end.
func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	if req.Message == "" {
		req.Message = "This is a test notification"
	}

	n := h.dispatcher.Deliver(r.Context(), notification.KindTest, req.UserID, req.Title, req.Message, "")
	h.logger.Info("test notification sent",
		zap.String("userId", req.UserID),
		zap.String("notificationId", n.ID),
	)

	common.RespondJSON(w, http.StatusOK, n)
}

// testReminderRequest is the body of the manual reminder trigger.
type testReminderRequest struct {
	UserID       string `json:"userId" validate:"required"`
	Title        string `json:"title" validate:"required"`
	MinutesUntil int    `json:"minutesUntil" validate:"gte=0"`
}

// TestReminder synthesizes a single REMINDER notification bypassing the
// dedup state, so delivery can be verified without waiting for a window.
func (h *NotificationHandler) TestReminder(w http.ResponseWriter, r *http.Request) {
	var req testReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	if req.MinutesUntil == 0 {
		req.MinutesUntil = 30
	}

	n := h.scheduler.SendTestReminder(r.Context(), req.UserID, req.Title, req.MinutesUntil)
	h.logger.Info("test reminder sent",
		zap.String("userId", req.UserID),
		zap.Int("minutesUntil", req.MinutesUntil),
		zap.String("notificationId", n.ID),
	)

	common.RespondJSON(w, http.StatusOK, n)
}
