package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSeriesNotFound          = errors.New("recurring series not found")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrForbidden               = errors.New("actor lacks privilege for this operation")
	ErrDayBeingBooked          = errors.New("day is currently being booked, please retry")
)

// ConflictError reports that a candidate interval overlaps an existing
// pending or confirmed appointment. It carries enough of the conflicting
// record for callers to surface it. Always recoverable: pick another slot.
type ConflictError struct {
	ConflictingID    uuid.UUID
	ConflictingTitle string
	ConflictingStart time.Time
	ConflictingEnd   time.Time
	ConflictingState Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot conflicts with appointment %s (%q, %s-%s, %s)",
		e.ConflictingID, e.ConflictingTitle,
		e.ConflictingStart.Format(time.RFC3339), e.ConflictingEnd.Format(time.RFC3339),
		e.ConflictingState)
}

func newConflictError(a *Appointment) *ConflictError {
	return &ConflictError{
		ConflictingID:    a.ID,
		ConflictingTitle: a.Title,
		ConflictingStart: a.StartTime,
		ConflictingEnd:   a.EndTime,
		ConflictingState: a.Status,
	}
}

// ValidationError aggregates field-level input problems. It is raised before
// any conflict check or persistence call, so a failed validation never
// partially applies.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(v.FieldErrors))
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) hasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}
