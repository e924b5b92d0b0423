package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/redis"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

// Dispatcher publishes a queued notification for asynchronous delivery.
// Dispatch results are informational: a failed dispatch marks the record
// FAILED but never aborts or reverses the state transition that caused it.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification, appt *Appointment) error
}

// Options carries the business policy the service needs. Everything is
// passed explicitly; the scheduling logic reads no ambient globals.
type Options struct {
	// AutoConfirm creates appointments directly in confirmed status instead
	// of pending. Decided by an external setting, not by this package.
	AutoConfirm bool

	// RecurrenceHardCap is the absolute ceiling on expanded occurrences.
	RecurrenceHardCap int

	// InternalRecipients receive "new request" notifications.
	InternalRecipients []string

	// Timezone is the business timezone used for day locks and availability.
	Timezone *time.Location

	WorkStartMin int           // working hours open, minutes from midnight
	WorkEndMin   int           // working hours close, minutes from midnight
	SlotStep     time.Duration // default slot granularity
}

type Service struct {
	repo       Repository
	locker     redisclient.Locker
	dispatcher Dispatcher
	opts       Options
	log        zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, dispatcher Dispatcher, opts Options, log zerolog.Logger) *Service {
	if opts.RecurrenceHardCap <= 0 {
		opts.RecurrenceHardCap = schedule.DefaultHardCap
	}
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	return &Service{
		repo:       repo,
		locker:     locker,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
	}
}

// BatchResult reports the outcome of one date/occurrence in a batch. A
// conflict on one entry never blocks or rolls back its siblings.
type BatchResult struct {
	Start       time.Time
	Appointment *Appointment
	Err         error
}

// Availability computes the slot grid for one calendar day against the
// currently active appointments. step <= 0 falls back to the configured
// granularity.
func (s *Service) Availability(ctx context.Context, day time.Time, step time.Duration) ([]schedule.Slot, error) {
	if step <= 0 {
		step = s.opts.SlotStep
	}
	day = day.In(s.opts.Timezone)
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.opts.Timezone)
	dayEnd := dayStart.AddDate(0, 0, 1)

	active, err := s.repo.FindOverlapping(ctx, dayStart, dayEnd, nil)
	if err != nil {
		return nil, fmt.Errorf("load day bookings: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(active))
	for _, a := range active {
		busy = append(busy, a.Interval())
	}

	return schedule.GenerateSlots(dayStart, s.opts.WorkStartMin, s.opts.WorkEndMin, step, busy), nil
}

// Get returns one appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Agenda lists every appointment touching the given window, regardless of
// status. The calendar view uses it.
func (s *Service) Agenda(ctx context.Context, start, end time.Time) ([]*Appointment, error) {
	return s.repo.FindBetween(ctx, start, end)
}

// Create books a single appointment. The conflict check and insert run under
// the business-day lock; the initial status follows the auto-confirm policy.
func (s *Service) Create(ctx context.Context, actor Actor, in *CreateInput) (*Appointment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, in); err != nil {
		return nil, err
	}

	appt, err := s.createOne(ctx, in, in.StartTime, in.EndTime, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NotificationNewRequest, appt, s.opts.InternalRecipients)
	return appt, nil
}

// CreateRecurring expands the input's recurrence rule and books every
// occurrence independently under one recurring group id. Occurrences that
// collide are reported in the result list and skipped; the rest persist.
func (s *Service) CreateRecurring(ctx context.Context, actor Actor, in *CreateInput) (uuid.UUID, []BatchResult, error) {
	if err := in.Validate(); err != nil {
		return uuid.Nil, nil, err
	}
	if in.Recurrence == nil {
		return uuid.Nil, nil, &ValidationError{FieldErrors: map[string]string{"recurrence": "recurrence rule is required"}}
	}
	if err := s.authorize(actor, in); err != nil {
		return uuid.Nil, nil, err
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	occurrences, err := schedule.Expand(in.StartTime, duration, in.Recurrence, s.opts.RecurrenceHardCap)
	if err != nil {
		return uuid.Nil, nil, &ValidationError{FieldErrors: map[string]string{"recurrence": err.Error()}}
	}

	group := uuid.New()
	results := make([]BatchResult, 0, len(occurrences))
	for _, occ := range occurrences {
		appt, err := s.createOne(ctx, in, occ.Start, occ.End, &group)
		if err != nil {
			results = append(results, BatchResult{Start: occ.Start, Err: err})
			continue
		}
		results = append(results, BatchResult{Start: occ.Start, Appointment: appt})
	}

	if first := firstSuccess(results); first != nil {
		s.notify(ctx, NotificationNewRequest, first, s.opts.InternalRecipients)
	}
	return group, results, nil
}

// CreateMultiDate books the base appointment plus one sibling per extra
// calendar date, same time-of-day and duration. Each date runs the full
// creation flow on its own; partial failure is expected and normal.
func (s *Service) CreateMultiDate(ctx context.Context, actor Actor, in *CreateInput) ([]BatchResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if len(in.Dates) == 0 {
		return nil, &ValidationError{FieldErrors: map[string]string{"dates": "at least one extra date is required"}}
	}
	if err := s.authorize(actor, in); err != nil {
		return nil, err
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	template := in.StartTime.In(s.opts.Timezone)
	starts := make([]time.Time, 0, len(in.Dates)+1)
	starts = append(starts, in.StartTime)
	for _, d := range in.Dates {
		y, m, day := d.In(s.opts.Timezone).Date()
		starts = append(starts, time.Date(y, m, day,
			template.Hour(), template.Minute(), 0, 0, s.opts.Timezone))
	}

	results := make([]BatchResult, 0, len(starts))
	for _, start := range starts {
		appt, err := s.createOne(ctx, in, start, start.Add(duration), nil)
		if err != nil {
			results = append(results, BatchResult{Start: start, Err: err})
			continue
		}
		results = append(results, BatchResult{Start: start, Appointment: appt})
	}

	if first := firstSuccess(results); first != nil {
		s.notify(ctx, NotificationNewRequest, first, s.opts.InternalRecipients)
	}
	return results, nil
}

// createOne runs the guarded check-then-insert for one concrete interval.
func (s *Service) createOne(ctx context.Context, in *CreateInput, start, end time.Time, group *uuid.UUID) (*Appointment, error) {
	var created *Appointment

	err := s.locker.WithDayLock(ctx, start.In(s.opts.Timezone), func(lockCtx context.Context) error {
		existing, err := s.repo.FindOverlapping(lockCtx, start, end, nil)
		if err != nil {
			return fmt.Errorf("check overlapping appointments: %w", err)
		}
		if c := FindConflict(start, end, existing, nil); c != nil {
			return newConflictError(c)
		}

		status := StatusPending
		if s.opts.AutoConfirm {
			status = StatusConfirmed
		}

		appt := &Appointment{
			Title:            in.Title,
			Description:      in.Description,
			Location:         in.Location,
			StartTime:        start,
			EndTime:          end,
			DurationMinutes:  in.DurationMinutes,
			Status:           status,
			Type:             in.Type,
			ClientName:       in.ClientName,
			ClientEmail:      in.ClientEmail,
			ClientPhone:      in.ClientPhone,
			ClientCompany:    in.ClientCompany,
			Participants:     in.Participants,
			RecurringGroupID: group,
		}
		if err := s.repo.Create(lockCtx, appt); err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}
	return created, nil
}

// Confirm moves a pending appointment to confirmed, re-validating the slot
// at confirm time.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.revalidatedTransition(ctx, appt, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NotificationConfirmation, updated, []string{updated.ClientEmail})
	return updated, nil
}

// Cancel transitions a pending or confirmed appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Active() {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.notify(ctx, NotificationCancellation, updated, []string{updated.ClientEmail})
	return updated, nil
}

// Reactivate returns a cancelled appointment to pending. The slot may have
// been taken in the interim, so the conflict check runs again and fails
// with a ConflictError naming the appointment that now holds the slot.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusCancelled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.revalidatedTransition(ctx, appt, StatusCancelled, StatusPending)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, NotificationNewRequest, updated, s.opts.InternalRecipients)
	return updated, nil
}

// Complete marks an appointment completed. Administrative action only; no
// conflict re-check, the time has passed.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	if !actor.Elevated() {
		return nil, ErrForbidden
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCompleted {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	return updated, nil
}

// revalidatedTransition re-checks the appointment's interval against the
// calendar (excluding itself) under the day lock, then swaps the status.
func (s *Service) revalidatedTransition(ctx context.Context, appt *Appointment, from, to Status) (*Appointment, error) {
	var updated *Appointment

	err := s.locker.WithDayLock(ctx, appt.StartTime.In(s.opts.Timezone), func(lockCtx context.Context) error {
		existing, err := s.repo.FindOverlapping(lockCtx, appt.StartTime, appt.EndTime, &appt.ID)
		if err != nil {
			return fmt.Errorf("check overlapping appointments: %w", err)
		}
		if c := FindConflict(appt.StartTime, appt.EndTime, existing, &appt.ID); c != nil {
			return newConflictError(c)
		}

		updated, err = s.repo.UpdateStatus(lockCtx, appt.ID, from, to)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidStatusTransition
			}
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}
	return updated, nil
}

// UpdateInput is a partial edit; nil fields stay unchanged.
type UpdateInput struct {
	Title         *string
	Description   *string
	Location      *string
	StartTime     *time.Time
	EndTime       *time.Time
	Type          *Type
	ClientName    *string
	ClientEmail   *string
	ClientPhone   *string
	ClientCompany *string
	Participants  []Participant
}

// Update edits an appointment's fields. A time change re-runs the conflict
// check excluding the appointment itself; an edited series instance becomes
// a recurrence exception with its original start time preserved.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, patch *UpdateInput) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Active() {
		return nil, ErrInvalidStatusTransition
	}

	next := *appt
	applyPatch(&next, patch)

	timeChanged := !next.StartTime.Equal(appt.StartTime) || !next.EndTime.Equal(appt.EndTime)
	if timeChanged {
		next.DurationMinutes = int(next.EndTime.Sub(next.StartTime).Minutes())
	}

	if err := validateEdited(&next); err != nil {
		return nil, err
	}
	if patch.Type != nil && privilegedTypes[*patch.Type] && !actor.Elevated() {
		return nil, ErrForbidden
	}

	// Any individual edit diverges a series instance from its pattern.
	if next.RecurringGroupID != nil {
		next.IsRecurrenceException = true
	}

	if !timeChanged {
		if err := s.repo.Update(ctx, &next); err != nil {
			return nil, err
		}
		return &next, nil
	}

	if next.RecurringGroupID != nil && next.OriginalStartTime == nil {
		original := appt.StartTime
		next.OriginalStartTime = &original
	}

	err = s.locker.WithDayLock(ctx, next.StartTime.In(s.opts.Timezone), func(lockCtx context.Context) error {
		existing, err := s.repo.FindOverlapping(lockCtx, next.StartTime, next.EndTime, &next.ID)
		if err != nil {
			return fmt.Errorf("check overlapping appointments: %w", err)
		}
		if c := FindConflict(next.StartTime, next.EndTime, existing, &next.ID); c != nil {
			return newConflictError(c)
		}
		return s.repo.Update(lockCtx, &next)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDayBeingBooked
		}
		return nil, err
	}

	s.notify(ctx, NotificationRescheduled, &next, []string{next.ClientEmail})
	return &next, nil
}

// CancelSeries applies a scoped cancellation to a recurring group and
// returns how many instances actually transitioned. Already-cancelled (and
// completed) instances are skipped, never errors, so repeating a call is
// harmless and reports zero.
func (s *Service) CancelSeries(ctx context.Context, groupID uuid.UUID, scope CancelScope, apptID *uuid.UUID, from time.Time) (int64, error) {
	instances, err := s.repo.FindByGroupID(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("load series: %w", err)
	}
	if len(instances) == 0 {
		return 0, ErrSeriesNotFound
	}

	switch scope {
	case CancelSingle:
		if apptID == nil {
			return 0, &ValidationError{FieldErrors: map[string]string{"appointment_id": "appointment_id is required for scope single"}}
		}
		return s.cancelSeriesInstance(ctx, groupID, *apptID)

	case CancelFuture:
		if from.IsZero() {
			return 0, &ValidationError{FieldErrors: map[string]string{"from_date": "from_date is required for scope future"}}
		}
		return s.cancelSeriesBulk(ctx, instances, groupID, from)

	case CancelAll:
		return s.cancelSeriesBulk(ctx, instances, groupID, time.Time{})

	default:
		return 0, &ValidationError{FieldErrors: map[string]string{"cancel_type": "cancel_type must be single, future or all"}}
	}
}

func (s *Service) cancelSeriesInstance(ctx context.Context, groupID, id uuid.UUID) (int64, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if appt.RecurringGroupID == nil || *appt.RecurringGroupID != groupID {
		return 0, ErrAppointmentNotFound
	}
	if !appt.Active() {
		return 0, nil // idempotent: nothing left to transition
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("cancel series instance: %w", err)
	}

	// A single-instance cancellation diverges the instance from its series.
	updated.IsRecurrenceException = true
	if err := s.repo.Update(ctx, updated); err != nil {
		return 1, fmt.Errorf("mark recurrence exception: %w", err)
	}

	s.notify(ctx, NotificationCancellation, updated, []string{updated.ClientEmail})
	return 1, nil
}

func (s *Service) cancelSeriesBulk(ctx context.Context, instances []*Appointment, groupID uuid.UUID, from time.Time) (int64, error) {
	count, err := s.repo.CancelGroup(ctx, groupID, from)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.notify(ctx, NotificationCancellation, instances[0], []string{instances[0].ClientEmail})
	}
	return count, nil
}

// QueueDueReminders queues one reminder per confirmed appointment starting
// within the lead window. Called periodically by the reminder worker.
func (s *Service) QueueDueReminders(ctx context.Context, now time.Time, lead time.Duration) (int, error) {
	due, err := s.repo.FindReminderCandidates(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("find reminder candidates: %w", err)
	}
	for _, appt := range due {
		s.notify(ctx, NotificationReminder, appt, []string{appt.ClientEmail})
	}
	return len(due), nil
}

// authorize enforces the role preconditions: privileged appointment types,
// recurrence, and multi-date creation belong to elevated roles.
func (s *Service) authorize(actor Actor, in *CreateInput) error {
	if privilegedTypes[in.Type] && !actor.Elevated() {
		return ErrForbidden
	}
	if (in.Recurrence != nil || len(in.Dates) > 0) && !actor.Elevated() {
		return ErrForbidden
	}
	return nil
}

// notify records and dispatches one notification per recipient. Failures
// are logged and recorded; they never surface to the caller because the
// triggering transition has already committed.
func (s *Service) notify(ctx context.Context, kind NotificationKind, appt *Appointment, recipients []string) {
	for _, recipient := range recipients {
		n := &Notification{
			AppointmentID: appt.ID,
			Kind:          kind,
			Status:        NotificationPending,
			Recipient:     recipient,
		}
		if err := s.repo.CreateNotification(ctx, n); err != nil {
			s.log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Str("kind", string(kind)).
				Msg("record notification")
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, n, appt); err != nil {
			s.log.Error().Err(err).
				Str("notification_id", n.ID.String()).
				Str("kind", string(kind)).
				Msg("dispatch notification")
			detail := err.Error()
			if uerr := s.repo.UpdateNotificationStatus(ctx, n.ID, NotificationFailed, &detail, nil); uerr != nil {
				s.log.Error().Err(uerr).Str("notification_id", n.ID.String()).Msg("mark notification failed")
			}
		}
	}
}

// validateEdited re-checks the temporal invariants after a patch.
func validateEdited(a *Appointment) error {
	v := &ValidationError{}
	if !a.EndTime.After(a.StartTime) {
		v.add("end_time", "end_time must be after start_time")
	} else {
		minutes := int(a.EndTime.Sub(a.StartTime).Minutes())
		if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
			v.add("duration", "duration must be between 15 and 480 minutes")
		}
	}
	if !validEmail(a.ClientEmail) {
		v.add("client_email", "a valid client email is required")
	}
	if !validTypes[a.Type] {
		v.add("type", "unknown appointment type")
	}
	if v.hasErrors() {
		return v
	}
	return nil
}

func applyPatch(a *Appointment, p *UpdateInput) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.Location != nil {
		a.Location = p.Location
	}
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.ClientName != nil {
		a.ClientName = *p.ClientName
	}
	if p.ClientEmail != nil {
		a.ClientEmail = *p.ClientEmail
	}
	if p.ClientPhone != nil {
		a.ClientPhone = p.ClientPhone
	}
	if p.ClientCompany != nil {
		a.ClientCompany = p.ClientCompany
	}
	if p.Participants != nil {
		a.Participants = p.Participants
	}
}

func firstSuccess(results []BatchResult) *Appointment {
	for _, r := range results {
		if r.Appointment != nil {
			return r.Appointment
		}
	}
	return nil
}
