package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

func TestCreateRequestToInput(t *testing.T) {
	desc := "fechamento do trimestre"
	req := CreateAppointmentRequest{
		Title:       "Reunião de diretoria",
		Description: &desc,
		StartTime:   "2026-03-02T10:00:00Z",
		EndTime:     "2026-03-02T11:30:00Z",
		Type:        "meeting",
		ClientName:  "Paulo Mendes",
		ClientEmail: "paulo@example.com",
		Participants: []ParticipantDTO{
			{Name: "Rita Alves", Email: "rita@example.com", Optional: true},
		},
		Dates: []string{"2026-03-03", "2026-03-04"},
	}

	in, err := req.toInput(time.UTC)
	if err != nil {
		t.Fatalf("toInput: %v", err)
	}
	if !in.StartTime.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", in.StartTime)
	}
	if !in.EndTime.Equal(in.StartTime.Add(90 * time.Minute)) {
		t.Fatalf("end = %s", in.EndTime)
	}
	if len(in.Dates) != 2 || !in.Dates[0].Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("dates = %v", in.Dates)
	}
	if len(in.Participants) != 1 || !in.Participants[0].Optional {
		t.Fatalf("participants = %+v", in.Participants)
	}
}

func TestCreateRequestDurationOnly(t *testing.T) {
	req := CreateAppointmentRequest{
		Title:           "Chamada rápida",
		StartTime:       "2026-03-02T10:00:00Z",
		DurationMinutes: 45,
		Type:            "call",
		ClientName:      "Paulo Mendes",
		ClientEmail:     "paulo@example.com",
	}

	in, err := req.toInput(time.UTC)
	if err != nil {
		t.Fatalf("toInput: %v", err)
	}
	if !in.EndTime.Equal(in.StartTime.Add(45 * time.Minute)) {
		t.Fatalf("end = %s, want start+45m", in.EndTime)
	}
}

func TestCreateRequestRejectsBadTimestamp(t *testing.T) {
	req := CreateAppointmentRequest{StartTime: "March 2nd"}
	if _, err := req.toInput(time.UTC); err == nil {
		t.Fatal("garbage start_time accepted")
	}
}

func TestRecurrenceDTOEndDateIsInclusive(t *testing.T) {
	end := "2026-03-31"
	dto := RecurrenceDTO{
		Frequency:  "weekly",
		Interval:   1,
		ByWeekdays: []int{1, 3},
		EndDate:    &end,
	}

	rule, err := dto.toRule(time.UTC)
	if err != nil {
		t.Fatalf("toRule: %v", err)
	}
	if rule.Frequency != schedule.FreqWeekly {
		t.Fatalf("frequency = %s", rule.Frequency)
	}
	if len(rule.ByWeekdays) != 2 || rule.ByWeekdays[0] != time.Monday || rule.ByWeekdays[1] != time.Wednesday {
		t.Fatalf("weekdays = %v", rule.ByWeekdays)
	}

	// An occurrence at any time on the end date still qualifies.
	lastDay := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	if rule.Until == nil || rule.Until.Before(lastDay) {
		t.Fatalf("until = %v excludes the end date", rule.Until)
	}
	if !rule.Until.Before(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("until = %v leaks into the next day", rule.Until)
	}
}

func TestRecurrenceDTORejectsBadWeekday(t *testing.T) {
	dto := RecurrenceDTO{Frequency: "weekly", Interval: 1, ByWeekdays: []int{7}}
	if _, err := dto.toRule(time.UTC); err == nil {
		t.Fatal("weekday 7 accepted")
	}
}

func TestActorFromHeaders(t *testing.T) {
	id := uuid.New()

	r := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	r.Header.Set("X-Actor-Role", "secretary")
	r.Header.Set("X-Actor-Id", id.String())

	actor := actorFrom(r)
	if actor.Role != appointment.RoleSecretary || actor.ID != id {
		t.Fatalf("actor = %+v", actor)
	}

	// Unknown role degrades to staff.
	r = httptest.NewRequest(http.MethodGet, "/appointments", nil)
	r.Header.Set("X-Actor-Role", "superuser")
	if actor := actorFrom(r); actor.Role != appointment.RoleStaff {
		t.Fatalf("unknown role mapped to %s", actor.Role)
	}
}

func TestErrorMapping(t *testing.T) {
	conflictID := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &appointment.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}, http.StatusBadRequest, "validation_failed"},
		{"conflict", &appointment.ConflictError{ConflictingID: conflictID, ConflictingTitle: "Visita técnica"}, http.StatusBadRequest, "appointment_conflict"},
		{"unauthorized", appointment.ErrForbidden, http.StatusUnauthorized, "unauthorized"},
		{"not found", appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"series not found", appointment.ErrSeriesNotFound, http.StatusNotFound, "series_not_found"},
		{"bad transition", appointment.ErrInvalidStatusTransition, http.StatusBadRequest, "invalid_status_transition"},
		{"day locked", appointment.ErrDayBeingBooked, http.StatusConflict, "day_being_booked"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleAppointmentError(rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tc.code {
				t.Fatalf("code = %q, want %q", body.Error, tc.code)
			}
			if tc.code == "appointment_conflict" {
				if body.Conflict == nil || body.Conflict.ID != conflictID {
					t.Fatalf("conflict detail missing: %+v", body.Conflict)
				}
			}
		})
	}
}
