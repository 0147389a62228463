package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrValidation marks deterministic input errors; fixed by correcting
	// input, never by retrying.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a date-range collision on a room.
	ErrConflict = errors.New("room unavailable for requested dates")

	// ErrInvariant marks states only reachable by bypassing the maintainer's
	// mutation paths. Internal, logged, never user-facing detail.
	ErrInvariant = errors.New("booking invariant violated")
)

// ValidationError carries a human-readable reason for a rejected operation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError identifies the existing booking that blocks a room
// assignment, for caller display.
type ConflictError struct {
	RoomID    int64
	BookingID int64
	CheckIn   time.Time
	CheckOut  time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("room %d already booked %s to %s (booking %d)",
		e.RoomID, e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"), e.BookingID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvariantError wraps ErrInvariant with context for the logs.
type InvariantError struct {
	GroupID int64
	Detail  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("group %d: %s", e.GroupID, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// IsClientError reports whether the error should map to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
