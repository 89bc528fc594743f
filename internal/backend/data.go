package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"goodfit/internal/model"
	"goodfit/internal/storage"
)

const restPrefix = "/rest/v1"

// orNil turns a 404 into (nil, nil), matching a select that found no row.
func orNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindUserByID returns the user record with id, or nil when none is visible.
func (c *Client) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	return orNil(&user, c.do(ctx, http.MethodGet, restPrefix+"/users/"+url.PathEscape(id), nil, nil, &user))
}

// FindUserByEmail returns the oldest user record with email, or nil.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := url.Values{"email": {email}}
	return orNil(&user, c.do(ctx, http.MethodGet, restPrefix+"/users", query, nil, &user))
}

// InsertUser creates a user record. The backend assigns role and created_at.
func (c *Client) InsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	var created model.User
	if err := c.do(ctx, http.MethodPost, restPrefix+"/users", nil, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser patches the record stored under currentID. Setting patch.ID moves
// the record to a new id.
func (c *Client) UpdateUser(ctx context.Context, currentID string, patch model.UserPatch) (*model.User, error) {
	var updated model.User
	if err := c.do(ctx, http.MethodPatch, restPrefix+"/users/"+url.PathEscape(currentID), nil, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, restPrefix+"/admin/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListGyms(ctx context.Context) ([]model.Gym, error) {
	var gyms []model.Gym
	if err := c.do(ctx, http.MethodGet, restPrefix+"/gyms", nil, nil, &gyms); err != nil {
		return nil, err
	}
	return gyms, nil
}

// GetGym returns the gym with id, or nil when it does not exist.
func (c *Client) GetGym(ctx context.Context, id string) (*model.Gym, error) {
	var gym model.Gym
	return orNil(&gym, c.do(ctx, http.MethodGet, restPrefix+"/gyms/"+url.PathEscape(id), nil, nil, &gym))
}

func (c *Client) InsertGym(ctx context.Context, gym *model.Gym) (*model.Gym, error) {
	var created model.Gym
	if err := c.do(ctx, http.MethodPost, restPrefix+"/gyms", nil, gym, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateGym sends the given fields; fields left out of the map keep their value.
func (c *Client) UpdateGym(ctx context.Context, id string, fields map[string]any) (*model.Gym, error) {
	var updated model.Gym
	if err := c.do(ctx, http.MethodPatch, restPrefix+"/gyms/"+url.PathEscape(id), nil, fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteGym(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, restPrefix+"/gyms/"+url.PathEscape(id), nil, nil, nil)
}

// GymImageUploadURL asks for a presigned URL to upload one gym image.
func (c *Client) GymImageUploadURL(ctx context.Context, gymID, fileName, contentType string) (*storage.Upload, error) {
	body := map[string]string{"file_name": fileName, "content_type": contentType}
	var upload storage.Upload
	if err := c.do(ctx, http.MethodPost, restPrefix+"/gyms/"+url.PathEscape(gymID)+"/image-upload-url", nil, body, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// AttachGymImage records an uploaded image URL on the gym.
func (c *Client) AttachGymImage(ctx context.Context, gymID, imageURL string) (*model.Gym, error) {
	var gym model.Gym
	body := map[string]string{"url": imageURL}
	if err := c.do(ctx, http.MethodPost, restPrefix+"/gyms/"+url.PathEscape(gymID)+"/images", nil, body, &gym); err != nil {
		return nil, err
	}
	return &gym, nil
}

func (c *Client) ListClasses(ctx context.Context, gymID string) ([]model.FitnessClass, error) {
	var classes []model.FitnessClass
	if err := c.do(ctx, http.MethodGet, restPrefix+"/gyms/"+url.PathEscape(gymID)+"/classes", nil, nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// GetClass returns the class with id, or nil when it does not exist.
func (c *Client) GetClass(ctx context.Context, id string) (*model.FitnessClass, error) {
	var class model.FitnessClass
	return orNil(&class, c.do(ctx, http.MethodGet, restPrefix+"/classes/"+url.PathEscape(id), nil, nil, &class))
}

func (c *Client) InsertClass(ctx context.Context, class *model.FitnessClass) (*model.FitnessClass, error) {
	var created model.FitnessClass
	if err := c.do(ctx, http.MethodPost, restPrefix+"/classes", nil, class, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteClass(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, restPrefix+"/classes/"+url.PathEscape(id), nil, nil, nil)
}

// ActiveBookings returns the caller's non-cancelled bookings of a class.
func (c *Client) ActiveBookings(ctx context.Context, classID string) ([]model.Booking, error) {
	var bookings []model.Booking
	query := url.Values{"class_id": {classID}, "active": {"true"}}
	if err := c.do(ctx, http.MethodGet, restPrefix+"/bookings", query, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) ListMyBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := c.do(ctx, http.MethodGet, restPrefix+"/bookings", nil, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) ListAllBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := c.do(ctx, http.MethodGet, restPrefix+"/admin/bookings", nil, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) InsertBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	var created model.Booking
	if err := c.do(ctx, http.MethodPost, restPrefix+"/bookings", nil, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteOwnedBooking deletes the booking when userID owns it and returns the
// removed row, or nil when userID owns no booking with that id.
func (c *Client) DeleteOwnedBooking(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	var removed model.Booking
	q := url.Values{"user_id": {userID}}
	return orNil(&removed, c.do(ctx, http.MethodDelete, restPrefix+"/bookings/"+url.PathEscape(bookingID), q, nil, &removed))
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	var plans []model.Subscription
	if err := c.do(ctx, http.MethodGet, restPrefix+"/subscriptions", nil, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// IncrementBookedCount takes one seat of a class on the backend.
func (c *Client) IncrementBookedCount(ctx context.Context, classID string) error {
	return c.do(ctx, http.MethodPost, restPrefix+"/rpc/increment_booked_count", nil, model.ClassRef{ClassID: classID}, nil)
}

// DecrementBookedCount releases one seat of a class on the backend.
func (c *Client) DecrementBookedCount(ctx context.Context, classID string) error {
	return c.do(ctx, http.MethodPost, restPrefix+"/rpc/decrement_booked_count", nil, model.ClassRef{ClassID: classID}, nil)
}
