package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published by the backend.
const (
	SubjectSignedIn         = "auth.signed_in"
	SubjectTokenRefreshed   = "auth.token_refreshed"
	SubjectSignedOut        = "auth.signed_out"
	SubjectBookingCreated   = "booking.created"
	SubjectBookingCancelled = "booking.cancelled"
	SubjectSMSOTP           = "sms.otp"
)

type AuthEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

type BookingEvent struct {
	EventType string    `json:"event_type"`
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	ClassID   string    `json:"class_id"`
	GymID     string    `json:"gym_id"`
	At        time.Time `json:"at"`
}

type SMSMessage struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

// Publisher sends JSON events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close()
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("goodfit-server"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, event any) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.ErrorContext(ctx, "nats_publish_failed", "subject", subject, "error", err)
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	slog.DebugContext(ctx, "nats_published", "subject", subject)
	return nil
}

func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// LogPublisher records events in the log when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, subject string, event any) error {
	slog.InfoContext(ctx, "event", "subject", subject, "payload", event)
	return nil
}

func (LogPublisher) Close() {}
