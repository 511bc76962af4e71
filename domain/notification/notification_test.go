package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PopulatesFields(t *testing.T) {
	n := New(KindCreated, "user-1", "Dentist", "New event created: Dentist", "evt-1")

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, KindCreated, n.Kind)
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, "Dentist", n.Title)
	assert.Equal(t, "New event created: Dentist", n.Message)
	assert.Equal(t, "evt-1", n.EventID)
	assert.False(t, n.Timestamp.IsZero())

	// Each notification gets its own identity.
	other := New(KindCreated, "user-1", "Dentist", "New event created: Dentist", "evt-1")
	assert.NotEqual(t, n.ID, other.ID)
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		kind    Kind
		message string
	}{
		{KindCreated, "New event created: Standup"},
		{KindUpdated, "Event updated: Standup"},
		{KindDeleted, "Event deleted: Standup"},
		{KindAIExtracted, "AI extracted: Standup"},
		{Kind("SOMETHING_NEW"), "Event: Standup"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.message, MessageFor(tt.kind, "Standup"))
		})
	}
}

func TestKind_Valid(t *testing.T) {
	for _, kind := range []Kind{KindCreated, KindUpdated, KindDeleted, KindAIExtracted, KindReminder, KindTest} {
		assert.True(t, kind.Valid(), string(kind))
	}
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("MOVED").Valid())
}

func TestNotification_JSONShape(t *testing.T) {
	n := New(KindReminder, "", "Standup", `In 30 min: "Standup"`, "evt-9")

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "REMINDER", decoded["type"])
	assert.Equal(t, "evt-9", decoded["eventId"])
	// An empty user is omitted rather than serialized as null.
	_, hasUser := decoded["userId"]
	assert.False(t, hasUser)
}
