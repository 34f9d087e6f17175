package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks a failed round-trip to the categories backend.
	ErrNetwork = errors.New("network error")
	// ErrNotFound indicates the category no longer exists.
	ErrNotFound = errors.New("category not found")
	// ErrConflict indicates the backend rejected a write against the current state,
	// for example archiving an already archived category.
	ErrConflict = errors.New("category conflict")
)

// ValidationError is a field-level input problem. The write is never attempted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Describe maps an error to the text and severity shown to the user.
func Describe(err error) (string, NotificationType) {
	var ve *ValidationError
	switch {
	case err == nil:
		return "", NotificationSuccess
	case errors.As(err, &ve):
		return ve.Msg, NotificationError
	case errors.Is(err, ErrNetwork):
		return "Unable to reach the server, check your connection and try again", NotificationError
	case errors.Is(err, ErrNotFound):
		return "This category no longer exists, the list has been refreshed", NotificationWarning
	case errors.Is(err, ErrConflict):
		return "This category was already changed elsewhere, the list has been refreshed", NotificationWarning
	default:
		return "Something went wrong, please try again", NotificationError
	}
}
