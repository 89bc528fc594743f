package repository

import (
	"context"
	"errors"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, user_id, class_id, gym_id, status, date_time, created_at`

// BookingRepository defines operations for bookings. Every query that reads
// or removes a user's booking carries user_id in its predicate.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindActive(ctx context.Context, userID, classID string) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	DeleteOwned(ctx context.Context, bookingID, userID string) (*model.Booking, error)
}

type bookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) BookingRepository {
	return &bookingRepository{db: db}
}

// scanBooking is the single mapping from a bookings row to model.Booking.
func scanBooking(row pgx.Row) (*model.Booking, error) {
	b := &model.Booking{}
	var status string
	if err := row.Scan(&b.ID, &b.UserID, &b.ClassID, &b.GymID, &status, &b.DateTime, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

// Create inserts a new booking
func (r *bookingRepository) Create(ctx context.Context, b *model.Booking) error {
	sql := `INSERT INTO bookings (id, user_id, class_id, gym_id, status, date_time)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + bookingColumns
	created, err := scanBooking(r.db.QueryRow(ctx, sql, b.ID, b.UserID, b.ClassID, b.GymID, string(b.Status), b.DateTime))
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	*b = *created
	return nil
}

// FindActive returns the user's non-cancelled bookings for a class
func (r *bookingRepository) FindActive(ctx context.Context, userID, classID string) ([]model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings
            WHERE user_id = $1 AND class_id = $2 AND status <> $3`
	rows, err := r.db.Query(ctx, sql, userID, classID, string(model.BookingStatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("failed to query active bookings: %w", err)
	}
	bookings, err := collect(rows, scanBooking)
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking rows: %w", err)
	}
	return bookings, nil
}

// ListByUser returns a user's bookings, most recent event first
func (r *bookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY date_time DESC`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings by user: %w", err)
	}
	bookings, err := collect(rows, scanBooking)
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking rows: %w", err)
	}
	return bookings, nil
}

// ListAll returns every booking for the admin dashboard
func (r *bookingRepository) ListAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY date_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all bookings: %w", err)
	}
	bookings, err := collect(rows, scanBooking)
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking rows: %w", err)
	}
	return bookings, nil
}

// DeleteOwned removes a booking only when it belongs to userID and returns
// the removed row; (nil, nil) when nothing matched
func (r *bookingRepository) DeleteOwned(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	sql := `DELETE FROM bookings WHERE id = $1 AND user_id = $2 RETURNING ` + bookingColumns
	deleted, err := scanBooking(r.db.QueryRow(ctx, sql, bookingID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	return deleted, nil
}
