package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"goodfit/internal/events"

	"github.com/stretchr/testify/require"
)

func TestAuthEvent_Marshal(t *testing.T) {
	ev := events.AuthEvent{
		EventType: events.SubjectSignedIn,
		UserID:    "user-1",
		SessionID: "session-1",
		At:        time.Now(),
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "auth.signed_in", decoded["event_type"])
	require.Equal(t, "session-1", decoded["session_id"])
}

func TestBookingEvent_Marshal(t *testing.T) {
	ev := events.BookingEvent{
		EventType: events.SubjectBookingCancelled,
		BookingID: "booking-1",
		UserID:    "user-1",
		ClassID:   "class-1",
		GymID:     "gym-1",
		At:        time.Now(),
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "booking.cancelled", decoded["event_type"])
	require.Equal(t, "class-1", decoded["class_id"])
}

func TestLogPublisher(t *testing.T) {
	var p events.Publisher = events.LogPublisher{}
	require.NoError(t, p.Publish(context.Background(), events.SubjectSignedOut, events.AuthEvent{}))
	p.Close()
}
