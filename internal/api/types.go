package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

type ParticipantDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Optional bool   `json:"optional,omitempty"`
}

type RecurrenceDTO struct {
	Frequency  string  `json:"frequency"`
	Interval   int     `json:"interval"`
	ByWeekdays []int   `json:"by_weekdays,omitempty"` // 0=Sunday .. 6=Saturday
	ByMonthDay int     `json:"by_month_day,omitempty"`
	EndDate    *string `json:"end_date,omitempty"` // YYYY-MM-DD
	Count      int     `json:"count,omitempty"`
}

type CreateAppointmentRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	Location        *string `json:"location,omitempty"`
	StartTime       string  `json:"start_time"` // RFC 3339
	EndTime         string  `json:"end_time,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Type            string  `json:"type"`

	ClientName    string  `json:"client_name"`
	ClientEmail   string  `json:"client_email"`
	ClientPhone   *string `json:"client_phone,omitempty"`
	ClientCompany *string `json:"client_company,omitempty"`

	Participants []ParticipantDTO `json:"participants,omitempty"`

	Recurrence *RecurrenceDTO `json:"recurrence,omitempty"`
	Dates      []string       `json:"dates,omitempty"` // YYYY-MM-DD, extra dates beyond start_time's
}

type UpdateAppointmentRequest struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Location        *string `json:"location,omitempty"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	Type            *string `json:"type,omitempty"`
	ClientName      *string `json:"client_name,omitempty"`
	ClientEmail     *string `json:"client_email,omitempty"`
	ClientPhone     *string `json:"client_phone,omitempty"`
	ClientCompany   *string `json:"client_company,omitempty"`
	Participants    []ParticipantDTO `json:"participants,omitempty"`
}

type CancelSeriesRequest struct {
	RecurringGroupID string  `json:"recurring_group_id"`
	CancelType       string  `json:"cancel_type"` // single, future, all
	AppointmentID    *string `json:"appointment_id,omitempty"`
	FromDate         *string `json:"from_date,omitempty"` // YYYY-MM-DD
}

type CancelSeriesResponse struct {
	RecurringGroupID uuid.UUID `json:"recurring_group_id"`
	CancelType       string    `json:"cancel_type"`
	CancelledCount   int64     `json:"cancelled_count"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Location        *string    `json:"location,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	Type            string     `json:"type"`
	ClientName      string     `json:"client_name"`
	ClientEmail     string     `json:"client_email"`
	ClientPhone     *string    `json:"client_phone,omitempty"`
	ClientCompany   *string    `json:"client_company,omitempty"`
	Participants    []ParticipantDTO `json:"participants,omitempty"`

	RecurringGroupID      *uuid.UUID `json:"recurring_group_id,omitempty"`
	IsRecurrenceException bool       `json:"is_recurrence_exception,omitempty"`
	OriginalStartTime     *time.Time `json:"original_start_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BatchEntryResponse struct {
	StartTime   time.Time            `json:"start_time"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
	Error       *ErrorResponse       `json:"error,omitempty"`
}

type BatchCreateResponse struct {
	RecurringGroupID *uuid.UUID           `json:"recurring_group_id,omitempty"`
	Created          int                  `json:"created"`
	Failed           int                  `json:"failed"`
	Results          []BatchEntryResponse `json:"results"`
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type AvailabilityResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type ErrorResponse struct {
	Error       string            `json:"error"`
	Details     string            `json:"details,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Conflict    *ConflictDetail   `json:"conflicting_appointment,omitempty"`
}

type ConflictDetail struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

// Conversions

func toAppointmentResponse(a *appointment.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Location:        a.Location,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Type:            string(a.Type),
		ClientName:      a.ClientName,
		ClientEmail:     a.ClientEmail,
		ClientPhone:     a.ClientPhone,
		ClientCompany:   a.ClientCompany,

		RecurringGroupID:      a.RecurringGroupID,
		IsRecurrenceException: a.IsRecurrenceException,
		OriginalStartTime:     a.OriginalStartTime,

		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	for _, p := range a.Participants {
		resp.Participants = append(resp.Participants, ParticipantDTO{Name: p.Name, Email: p.Email, Optional: p.Optional})
	}
	return resp
}

func toParticipants(dtos []ParticipantDTO) []appointment.Participant {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]appointment.Participant, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, appointment.Participant{Name: d.Name, Email: d.Email, Optional: d.Optional})
	}
	return out
}

func (r *CreateAppointmentRequest) toInput(loc *time.Location) (*appointment.CreateInput, error) {
	start, err := parseTime(r.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}

	in := &appointment.CreateInput{
		Title:           r.Title,
		Description:     r.Description,
		Location:        r.Location,
		StartTime:       start,
		DurationMinutes: r.DurationMinutes,
		Type:            appointment.Type(r.Type),
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientPhone:     r.ClientPhone,
		ClientCompany:   r.ClientCompany,
		Participants:    toParticipants(r.Participants),
	}

	if r.EndTime != "" {
		end, err := parseTime(r.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("end_time: %w", err)
		}
		in.EndTime = end
	} else if r.DurationMinutes > 0 {
		in.EndTime = start.Add(time.Duration(r.DurationMinutes) * time.Minute)
	}

	if r.Recurrence != nil {
		rule, err := r.Recurrence.toRule(loc)
		if err != nil {
			return nil, err
		}
		in.Recurrence = rule
	}

	for _, d := range r.Dates {
		day, err := parseDate(d, loc)
		if err != nil {
			return nil, fmt.Errorf("dates: %w", err)
		}
		in.Dates = append(in.Dates, day)
	}

	return in, nil
}

func (r *RecurrenceDTO) toRule(loc *time.Location) (*schedule.Rule, error) {
	rule := &schedule.Rule{
		Frequency:  schedule.Frequency(r.Frequency),
		Interval:   r.Interval,
		ByMonthDay: r.ByMonthDay,
		Count:      r.Count,
	}
	for _, wd := range r.ByWeekdays {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("recurrence: weekday %d out of range", wd)
		}
		rule.ByWeekdays = append(rule.ByWeekdays, time.Weekday(wd))
	}
	if r.EndDate != nil {
		day, err := parseDate(*r.EndDate, loc)
		if err != nil {
			return nil, fmt.Errorf("recurrence end_date: %w", err)
		}
		// Inclusive: the series may still fire on the end date itself.
		until := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
		rule.Until = &until
	}
	return rule, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not an RFC 3339 timestamp", s)
	}
	return t, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}
