// Package notification defines the outbound notification model shared by the
// fan-out consumer, the reminder scheduler and the manual trigger surface.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification. The first four kinds mirror the calendar
// change kinds; REMINDER is produced only by the reminder scheduler and TEST
// only by the manual trigger endpoints.
type Kind string

const (
	KindCreated     Kind = "CREATED"
	KindUpdated     Kind = "UPDATED"
	KindDeleted     Kind = "DELETED"
	KindAIExtracted Kind = "AI_EXTRACTED"
	KindReminder    Kind = "REMINDER"
	KindTest        Kind = "TEST"
)

// Valid reports whether k is one of the known notification kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreated, KindUpdated, KindDeleted, KindAIExtracted, KindReminder, KindTest:
		return true
	}
	return false
}

// Notification is the unit delivered to clients. The message is render-ready;
// clients never re-derive text. Immutable after construction.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	EventID   string    `json:"eventId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New constructs a Notification with a fresh identifier and timestamp.
// An empty userID means the notification is broadcast-only.
func New(kind Kind, userID, title, message, eventID string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    userID,
		Title:     title,
		Message:   message,
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
	}
}

// template builds the user-facing message for a change kind.
type template func(title string) string

// templates maps each change kind to its message template. Dispatch through
// a table rather than a switch so construction stays a pure lookup.
var templates = map[Kind]template{
	KindCreated:     func(title string) string { return "New event created: " + title },
	KindUpdated:     func(title string) string { return "Event updated: " + title },
	KindDeleted:     func(title string) string { return "Event deleted: " + title },
	KindAIExtracted: func(title string) string { return "AI extracted: " + title },
}

// MessageFor renders the message for a change-kind notification. Unknown
// kinds fall back to a generic template instead of failing.
func MessageFor(kind Kind, title string) string {
	if tmpl, ok := templates[kind]; ok {
		return tmpl(title)
	}
	return fmt.Sprintf("Event: %s", title)
}
