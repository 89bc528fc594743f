package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"goodfit/internal/events"
	"goodfit/internal/model"
	"goodfit/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// BookingService exposes bookings to their owners and the seat counter
// procedures. It holds no booking rules of its own; the app decides when a
// booking may be made.
type BookingService interface {
	ListActive(ctx context.Context, caller model.Principal, classID string) ([]model.Booking, error)
	ListMine(ctx context.Context, caller model.Principal) ([]model.Booking, error)
	ListAll(ctx context.Context, caller model.Principal) ([]model.Booking, error)
	Create(ctx context.Context, caller model.Principal, req model.CreateBookingRequest) (*model.Booking, error)
	DeleteOwned(ctx context.Context, caller model.Principal, bookingID string) (*model.Booking, error)
	IncrementBookedCount(ctx context.Context, classID string) error
	DecrementBookedCount(ctx context.Context, classID string) error
}

type bookingService struct {
	bookings  repository.BookingRepository
	classes   repository.ClassRepository
	publisher events.Publisher
}

// NewBookingService creates a new BookingService
func NewBookingService(bookings repository.BookingRepository, classes repository.ClassRepository, publisher events.Publisher) BookingService {
	return &bookingService{bookings: bookings, classes: classes, publisher: publisher}
}

func (s *bookingService) ListActive(ctx context.Context, caller model.Principal, classID string) ([]model.Booking, error) {
	return s.bookings.FindActive(ctx, caller.UserID, classID)
}

func (s *bookingService) ListMine(ctx context.Context, caller model.Principal) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, caller.UserID)
}

func (s *bookingService) ListAll(ctx context.Context, caller model.Principal) ([]model.Booking, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.bookings.ListAll(ctx)
}

// Create inserts a BOOKED row for the caller
func (s *bookingService) Create(ctx context.Context, caller model.Principal, req model.CreateBookingRequest) (*model.Booking, error) {
	if req.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	dateTime := req.DateTime
	if dateTime.IsZero() {
		dateTime = time.Now()
	}

	booking := &model.Booking{
		ID:       uuid.NewString(),
		UserID:   caller.UserID,
		ClassID:  req.ClassID,
		GymID:    req.GymID,
		Status:   model.BookingStatusBooked,
		DateTime: dateTime,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to create booking in repository: %w", err)
	}

	s.publish(ctx, events.SubjectBookingCreated, booking)
	return booking, nil
}

// DeleteOwned removes the caller's booking and returns the removed row
func (s *bookingService) DeleteOwned(ctx context.Context, caller model.Principal, bookingID string) (*model.Booking, error) {
	removed, err := s.bookings.DeleteOwned(ctx, bookingID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if removed == nil {
		return nil, ErrBookingNotFound
	}
	s.publish(ctx, events.SubjectBookingCancelled, removed)
	return removed, nil
}

func (s *bookingService) IncrementBookedCount(ctx context.Context, classID string) error {
	return s.classes.IncrementBookedCount(ctx, classID)
}

func (s *bookingService) DecrementBookedCount(ctx context.Context, classID string) error {
	return s.classes.DecrementBookedCount(ctx, classID)
}

func (s *bookingService) publish(ctx context.Context, subject string, b *model.Booking) {
	slog.InfoContext(ctx, "booking_event", "event", subject, "booking_id", b.ID, "user_id", b.UserID, "class_id", b.ClassID)
	event := events.BookingEvent{
		EventType: subject,
		BookingID: b.ID,
		UserID:    b.UserID,
		ClassID:   b.ClassID,
		GymID:     b.GymID,
		At:        time.Now(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		slog.WarnContext(ctx, "booking_event_publish_failed", "subject", subject, "error", err)
	}
}
