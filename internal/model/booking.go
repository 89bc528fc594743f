package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking ties one user to one class (and transitively one gym).
type Booking struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	ClassID   string        `json:"class_id"`
	GymID     string        `json:"gym_id"`
	Status    BookingStatus `json:"status"`
	DateTime  time.Time     `json:"date_time"`
	CreatedAt time.Time     `json:"created_at"`
}

// Active reports whether the booking still holds a seat.
func (b *Booking) Active() bool { return b.Status != BookingStatusCancelled }

// CreateBookingRequest is the body of a booking insert.
type CreateBookingRequest struct {
	UserID   string    `json:"user_id" binding:"required"`
	ClassID  string    `json:"class_id" binding:"required"`
	GymID    string    `json:"gym_id" binding:"required"`
	DateTime time.Time `json:"date_time"`
}

// ClassRef identifies a class for the capacity procedures.
type ClassRef struct {
	ClassID string `json:"class_id" binding:"required"`
}
