package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// activeStatuses are the statuses that occupy the director's calendar.
// Cancelled and completed appointments never block a slot.
var activeStatuses = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

type Type string

const (
	TypeMeeting      Type = "meeting"
	TypeCall         Type = "call"
	TypePresentation Type = "presentation"
	TypeParticular   Type = "particular"
	TypeViagem       Type = "viagem"
	TypeOther        Type = "other"
)

// privilegedTypes may only be created by elevated roles.
var privilegedTypes = map[Type]bool{
	TypeParticular: true,
	TypeViagem:     true,
}

// Role of the actor performing an operation. Authentication itself is an
// external collaborator; the service only gates on the resolved role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSecretary Role = "secretary"
	RoleStaff     Role = "staff"
)

// Actor identifies who is asking for an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Elevated reports whether the actor may use privileged appointment types,
// recurrence, and multi-date creation.
func (a Actor) Elevated() bool {
	return a.Role == RoleAdmin || a.Role == RoleSecretary
}

// Participant is informational only; participants never count in conflict
// or availability math.
type Participant struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Optional bool   `json:"optional"`
}

type Appointment struct {
	ID          uuid.UUID
	Title       string
	Description *string
	Location    *string

	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int

	Status Status
	Type   Type

	ClientName    string
	ClientEmail   string
	ClientPhone   *string
	ClientCompany *string

	Participants []Participant

	// Recurrence linkage. Every instance of a series is an independent row
	// sharing RecurringGroupID; edits never cascade to siblings.
	RecurringGroupID      *uuid.UUID
	IsRecurrenceException bool
	OriginalStartTime     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the appointment's half-open booking window.
func (a *Appointment) Interval() schedule.Interval {
	return schedule.Interval{Start: a.StartTime, End: a.EndTime}
}

// Active reports whether the appointment occupies calendar time.
func (a *Appointment) Active() bool {
	return activeStatuses[a.Status]
}

// NotificationKind classifies outbound communications about an appointment.
type NotificationKind string

const (
	NotificationNewRequest   NotificationKind = "new_request"
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationReminder     NotificationKind = "reminder"
	NotificationCancellation NotificationKind = "cancellation"
	NotificationRescheduled  NotificationKind = "rescheduled"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification records one attempted outbound message. The core never
// retries; redelivery policy belongs to the broker and mail collaborators.
type Notification struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Kind          NotificationKind
	Status        NotificationStatus
	Recipient     string
	Error         *string
	CreatedAt     time.Time
	SentAt        *time.Time
}

// CancelScope selects how much of a recurring series a cancellation touches.
type CancelScope string

const (
	CancelSingle CancelScope = "single"
	CancelFuture CancelScope = "future"
	CancelAll    CancelScope = "all"
)
