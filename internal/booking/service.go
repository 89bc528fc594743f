// Package booking lists gyms and classes and books or cancels classes for the
// signed-in user.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"goodfit/internal/apperr"
	"goodfit/internal/backend"
	"goodfit/internal/model"
)

// Backend is the data part of the backend SDK the service needs. GetClass and
// DeleteOwnedBooking return nil, nil when no row matches.
type Backend interface {
	ListGyms(ctx context.Context) ([]model.Gym, error)
	GetGym(ctx context.Context, id string) (*model.Gym, error)
	ListClasses(ctx context.Context, gymID string) ([]model.FitnessClass, error)
	GetClass(ctx context.Context, id string) (*model.FitnessClass, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)

	ActiveBookings(ctx context.Context, classID string) ([]model.Booking, error)
	ListMyBookings(ctx context.Context) ([]model.Booking, error)
	InsertBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error)
	DeleteOwnedBooking(ctx context.Context, bookingID, userID string) (*model.Booking, error)

	IncrementBookedCount(ctx context.Context, classID string) error
	DecrementBookedCount(ctx context.Context, classID string) error
}

// Result is the outcome of a book or cancel action. Expected refusals have
// OK false and Reason set; Message is always ready to show.
type Result struct {
	OK       bool
	Message  string
	Reason   error
	Booking  *model.Booking
	Bookings []model.Booking
}

func refused(reason error) Result {
	return Result{Reason: reason, Message: apperr.UserMessage(reason)}
}

const (
	msgBooked    = "Вы записаны на занятие"
	msgCancelled = "Бронирование отменено"
)

type Service struct {
	backend Backend
	now     func() time.Time
}

func NewService(b Backend) *Service {
	return &Service{backend: b, now: time.Now}
}

func transport(op string, err error) error {
	return apperr.Wrap(apperr.ErrTransport, fmt.Errorf("%s: %w", op, err))
}

// BookClass books classID for userID. Duplicate, missing and full classes
// come back as a refused Result; only backend faults return an error.
func (s *Service) BookClass(ctx context.Context, userID, classID, gymID string) (Result, error) {
	existing, err := s.backend.ActiveBookings(ctx, classID)
	if err != nil {
		return Result{}, transport("check existing bookings", err)
	}
	for _, b := range existing {
		if b.UserID == userID && b.Active() {
			return refused(apperr.ErrAlreadyBooked), nil
		}
	}

	class, err := s.backend.GetClass(ctx, classID)
	if err != nil {
		return Result{}, transport("load class", err)
	}
	if class == nil {
		return refused(apperr.ErrClassNotFound), nil
	}
	if class.IsFull() {
		return refused(apperr.ErrClassFull), nil
	}
	if gymID == "" {
		gymID = class.GymID
	}

	booking, err := s.backend.InsertBooking(ctx, model.CreateBookingRequest{
		UserID:   userID,
		ClassID:  classID,
		GymID:    gymID,
		DateTime: s.now().UTC(),
	})
	if errors.Is(err, backend.ErrNotFound) {
		return refused(apperr.ErrClassNotFound), nil
	}
	if err != nil {
		return Result{}, transport("insert booking", err)
	}

	if err := s.backend.IncrementBookedCount(ctx, classID); err != nil {
		return Result{}, transport("increment booked count", err)
	}
	slog.InfoContext(ctx, "class_booked", "booking_id", booking.ID, "class_id", classID, "user_id", userID)

	return Result{
		OK:       true,
		Message:  msgBooked,
		Booking:  booking,
		Bookings: s.refresh(ctx),
	}, nil
}

// CancelBooking deletes the caller's booking and releases its seat. A booking
// that does not exist or belongs to someone else is refused without touching
// the class.
func (s *Service) CancelBooking(ctx context.Context, userID, bookingID string) (Result, error) {
	removed, err := s.backend.DeleteOwnedBooking(ctx, bookingID, userID)
	if err != nil {
		return Result{}, transport("delete booking", err)
	}
	if removed == nil {
		return refused(apperr.ErrBookingNotFound), nil
	}

	if err := s.backend.DecrementBookedCount(ctx, removed.ClassID); err != nil {
		return Result{}, transport("decrement booked count", err)
	}
	slog.InfoContext(ctx, "booking_cancelled", "booking_id", removed.ID, "class_id", removed.ClassID, "user_id", userID)

	return Result{
		OK:       true,
		Message:  msgCancelled,
		Booking:  removed,
		Bookings: s.refresh(ctx),
	}, nil
}

// refresh reloads the caller's bookings after a change. A failure only costs
// the refreshed list.
func (s *Service) refresh(ctx context.Context) []model.Booking {
	bookings, err := s.backend.ListMyBookings(ctx)
	if err != nil {
		slog.WarnContext(ctx, "bookings_refresh_failed", "error", err)
		return nil
	}
	return bookings
}

func (s *Service) ListBookings(ctx context.Context) ([]model.Booking, error) {
	bookings, err := s.backend.ListMyBookings(ctx)
	if err != nil {
		return nil, transport("list bookings", err)
	}
	return bookings, nil
}

func (s *Service) ListGyms(ctx context.Context, c Criteria) ([]model.Gym, error) {
	gyms, err := s.backend.ListGyms(ctx)
	if err != nil {
		return nil, transport("list gyms", err)
	}
	return Filter(gyms, c), nil
}

// GetGym returns nil when the gym does not exist.
func (s *Service) GetGym(ctx context.Context, id string) (*model.Gym, error) {
	gym, err := s.backend.GetGym(ctx, id)
	if err != nil {
		return nil, transport("get gym", err)
	}
	return gym, nil
}

func (s *Service) ListClasses(ctx context.Context, gymID string) ([]model.FitnessClass, error) {
	classes, err := s.backend.ListClasses(ctx, gymID)
	if err != nil {
		return nil, transport("list classes", err)
	}
	return classes, nil
}

func (s *Service) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	plans, err := s.backend.ListSubscriptions(ctx)
	if err != nil {
		return nil, transport("list subscriptions", err)
	}
	return plans, nil
}
