package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
//
// The store must back FindOverlapping/Create with an exclusion guarantee on
// overlapping active intervals (see internal/db/schema.sql): the service's
// in-process conflict check is an early rejection, not the source of truth
// under concurrent writers.
type Repository interface {
	// FindOverlapping returns pending/confirmed appointments whose half-open
	// interval intersects [start, end), optionally excluding one id.
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID *uuid.UUID) ([]*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]*Appointment, error)
	FindBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error)

	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error

	// UpdateStatus performs a compare-and-swap on status so concurrent
	// transitions cannot double-fire; it returns ErrAppointmentNotFound when
	// no row matched id+from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// CancelGroup cancels every pending/confirmed instance of a series; when
	// from is non-zero only instances with start_time >= from are touched.
	// Returns the number of rows actually transitioned.
	CancelGroup(ctx context.Context, groupID uuid.UUID, from time.Time) (int64, error)

	// Notification records.
	CreateNotification(ctx context.Context, n *Notification) error
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status NotificationStatus, detail *string, sentAt *time.Time) error

	// FindReminderCandidates lists confirmed appointments starting within
	// [from, to) that have no reminder notification yet.
	FindReminderCandidates(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}
