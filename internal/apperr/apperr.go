// Package apperr holds the error kinds shared by the application core and the
// user-facing messages shown for them.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrDelivery        = errors.New("one-time code could not be sent")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrVerification    = errors.New("code verification failed")
	ErrUserResolution  = errors.New("user record could not be resolved")
	ErrAlreadyBooked   = errors.New("class already booked")
	ErrClassNotFound   = errors.New("class not found")
	ErrClassFull       = errors.New("class is full")
	ErrBookingNotFound = errors.New("booking not found")
	ErrTransport       = errors.New("backend request failed")
)

// Error attaches a kind to an underlying error. Message, when set, is the
// backend's own text and is surfaced verbatim.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err under kind. A nil err yields a bare kind error.
func Wrap(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// WithMessage classifies err under kind and keeps message for display.
func WithMessage(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var messages = []struct {
	kind error
	text string
}{
	{ErrInvalidCode, "Неверный или просроченный код"},
	{ErrVerification, "Не удалось проверить код, попробуйте ещё раз"},
	{ErrUserResolution, "Не удалось загрузить профиль пользователя"},
	{ErrAlreadyBooked, "Вы уже записаны на это занятие"},
	{ErrClassNotFound, "Занятие не найдено"},
	{ErrClassFull, "Нет свободных мест"},
	{ErrBookingNotFound, "Бронирование не найдено"},
	{ErrTransport, "Сервер недоступен, попробуйте позже"},
}

// UserMessage returns a short localized notification for err. Delivery
// failures show the backend's message as is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrDelivery) {
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "Не удалось отправить код"
	}
	for _, m := range messages {
		if errors.Is(err, m.kind) {
			return m.text
		}
	}
	return "Что-то пошло не так"
}

// Classified reports whether err carries one of the kinds above.
func Classified(err error) bool {
	if errors.Is(err, ErrDelivery) {
		return true
	}
	for _, m := range messages {
		if errors.Is(err, m.kind) {
			return true
		}
	}
	return false
}
