package service

import "errors"

var (
	ErrForbidden         = errors.New("forbidden: user does not have permission for this action")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this id already exists")
	ErrGymNotFound       = errors.New("gym not found")
	ErrClassNotFound     = errors.New("class not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrStorageDisabled   = errors.New("image storage is not configured")
)
