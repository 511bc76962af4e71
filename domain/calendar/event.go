// Package calendar holds the records exchanged with the calendar service:
// change events published on mutation and upcoming-event snapshots returned
// by the pull interface. The calendar store itself is out of scope.
package calendar

import (
	"fmt"
	"time"

	"agenda-backend/domain/notification"
)

const (
	// DateLayout is the wire format of event start dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format of event start times.
	TimeLayout = "15:04"
)

// ChangeEvent is published by the calendar service whenever an event is
// created, updated, deleted or extracted from text. Each publish is a new
// logical event even when it refers to the same event identifier. Unknown
// fields in the wire record are ignored on decode.
type ChangeEvent struct {
	ID        string            `json:"id"`
	Title     string            `json:"title" validate:"required"`
	StartDate string            `json:"startDate,omitempty"`
	StartTime string            `json:"startTime,omitempty"`
	Category  string            `json:"category,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Kind      notification.Kind `json:"type" validate:"required,oneof=CREATED UPDATED DELETED AI_EXTRACTED"`
}

// UpcomingEvent is a snapshot of an event due to start within the lookahead
// horizon. A poll always returns the latest version of each event.
type UpcomingEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	StartTime string `json:"startTime"`
	UserID    string `json:"userId"`
}

// Schedulable reports whether the event carries both a start date and a
// start time. Events missing either cannot be placed in a reminder window.
func (e UpcomingEvent) Schedulable() bool {
	return e.StartDate != "" && e.StartTime != ""
}

// StartsAt parses the event's start date and time in the given location.
func (e UpcomingEvent) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.StartDate+" "+e.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event start %q %q: %w", e.StartDate, e.StartTime, err)
	}
	return t, nil
}
