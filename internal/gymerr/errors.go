// internal/gymerr/errors.go
package gymerr

import "errors"

var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDuplicateClient  = errors.New("duplicate client")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrCapacityFull     = errors.New("session roster full")
	ErrAlreadyEnrolled  = errors.New("already enrolled")
	ErrNotEnrolled      = errors.New("not enrolled")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrInvalidSpecialty = errors.New("invalid specialty")
	ErrUnauthorized     = errors.New("unauthorized")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidFormat, "InvalidFormat"},
	{ErrCapacityExceeded, "CapacityExceeded"},
	{ErrDuplicateClient, "DuplicateClient"},
	{ErrNotFound, "NotFound"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrCapacityFull, "CapacityFull"},
	{ErrAlreadyEnrolled, "AlreadyEnrolled"},
	{ErrNotEnrolled, "NotEnrolled"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrMalformedRecord, "MalformedRecord"},
	{ErrInvalidSpecialty, "InvalidSpecialty"},
	{ErrUnauthorized, "Unauthorized"},
}

// Kind returns the taxonomy label of err, or "Internal" when err does not
// wrap any of the sentinels above.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
