package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, title, description, location,
	start_time, end_time, duration_minutes,
	status, type,
	client_name, client_email, client_phone, client_company,
	participants,
	recurring_group_id, is_recurrence_exception, original_start_time,
	created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var participants []byte

	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Location,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&a.Status,
		&a.Type,
		&a.ClientName,
		&a.ClientEmail,
		&a.ClientPhone,
		&a.ClientCompany,
		&participants,
		&a.RecurringGroupID,
		&a.IsRecurrenceException,
		&a.OriginalStartTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &a.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()

	var result []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
		  AND start_time < $2
		  AND end_time > $1
		  AND ($3::uuid IS NULL OR id <> $3)
		ORDER BY start_time
	`, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE recurring_group_id = $1
		ORDER BY start_time
	`, groupID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_time < $2
		  AND end_time > $1
		ORDER BY start_time
	`, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	participants, err := json.Marshal(a.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, title, description, location,
			start_time, end_time, duration_minutes,
			status, type,
			client_name, client_email, client_phone, client_company,
			participants,
			recurring_group_id, is_recurrence_exception, original_start_time,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
		RETURNING `+appointmentColumns+`
	`,
		a.ID, a.Title, a.Description, a.Location,
		a.StartTime, a.EndTime, a.DurationMinutes,
		a.Status, a.Type,
		a.ClientName, a.ClientEmail, a.ClientPhone, a.ClientCompany,
		participants,
		a.RecurringGroupID, a.IsRecurrenceException, a.OriginalStartTime,
	)

	created, err := scanAppointment(row)
	if err != nil {
		if conflicted := asExclusionViolation(err); conflicted {
			// The no_overlapping_active exclusion constraint fired: a
			// concurrent writer took the slot between our check and insert.
			if winner := r.overlapWinner(ctx, a); winner != nil {
				return newConflictError(winner)
			}
			return &ConflictError{ConflictingStart: a.StartTime, ConflictingEnd: a.EndTime}
		}
		return err
	}
	*a = *created
	return nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) error {
	participants, err := json.Marshal(a.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET title = $2,
		    description = $3,
		    location = $4,
		    start_time = $5,
		    end_time = $6,
		    duration_minutes = $7,
		    type = $8,
		    client_name = $9,
		    client_email = $10,
		    client_phone = $11,
		    client_company = $12,
		    participants = $13,
		    is_recurrence_exception = $14,
		    original_start_time = $15,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`,
		a.ID, a.Title, a.Description, a.Location,
		a.StartTime, a.EndTime, a.DurationMinutes,
		a.Type,
		a.ClientName, a.ClientEmail, a.ClientPhone, a.ClientCompany,
		participants,
		a.IsRecurrenceException, a.OriginalStartTime,
	)

	updated, err := scanAppointment(row)
	if err != nil {
		if asExclusionViolation(err) {
			if winner := r.overlapWinner(ctx, a); winner != nil {
				return newConflictError(winner)
			}
			return &ConflictError{ConflictingStart: a.StartTime, ConflictingEnd: a.EndTime}
		}
		return err
	}
	*a = *updated
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	updated, err := scanAppointment(row)
	if err != nil {
		if asExclusionViolation(err) {
			if winner := r.overlapWinnerByID(ctx, id); winner != nil {
				return nil, newConflictError(winner)
			}
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) CancelGroup(ctx context.Context, groupID uuid.UUID, from time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE recurring_group_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
	`, groupID, nullableTime(from))
	if err != nil {
		return 0, fmt.Errorf("cancel group: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, appointment_id, kind, status, recipient, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, n.ID, n.AppointmentID, n.Kind, n.Status, n.Recipient, n.Error)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status NotificationStatus, detail *string, sentAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2,
		    error = $3,
		    sent_at = $4
		WHERE id = $1
	`, id, status, detail, sentAt)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) FindReminderCandidates(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.status = 'confirmed'
		  AND a.start_time >= $1
		  AND a.start_time < $2
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.appointment_id = a.id AND n.kind = 'reminder'
		  )
		ORDER BY a.start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// overlapWinner looks up the appointment that beat a to its interval.
func (r *PgRepository) overlapWinner(ctx context.Context, a *Appointment) *Appointment {
	others, err := r.FindOverlapping(ctx, a.StartTime, a.EndTime, &a.ID)
	if err != nil || len(others) == 0 {
		return nil
	}
	return others[0]
}

func (r *PgRepository) overlapWinnerByID(ctx context.Context, id uuid.UUID) *Appointment {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return r.overlapWinner(ctx, a)
}

// asExclusionViolation reports whether err is the Postgres exclusion
// constraint on overlapping active appointments (SQLSTATE 23P01).
func asExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
