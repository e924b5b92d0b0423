package notification

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

func TestRoutingKeyCoversEveryKind(t *testing.T) {
	kinds := []appointment.NotificationKind{
		appointment.NotificationNewRequest,
		appointment.NotificationConfirmation,
		appointment.NotificationReminder,
		appointment.NotificationCancellation,
		appointment.NotificationRescheduled,
	}
	seen := make(map[string]appointment.NotificationKind)
	for _, k := range kinds {
		rk, err := RoutingKey(k)
		if err != nil {
			t.Fatalf("RoutingKey(%s): %v", k, err)
		}
		if !strings.HasPrefix(rk, "appointment.") {
			t.Fatalf("routing key %q escapes the appointment.* binding", rk)
		}
		if prev, dup := seen[rk]; dup {
			t.Fatalf("kinds %s and %s share routing key %q", prev, k, rk)
		}
		seen[rk] = k
	}

	if _, err := RoutingKey(appointment.NotificationKind("bogus")); err == nil {
		t.Fatal("unknown kind produced a routing key")
	}
}

func TestEventRoundTrip(t *testing.T) {
	loc := "Sala de reuniões 2"
	appt := &appointment.Appointment{
		ID:         uuid.New(),
		Title:      "Reunião com fornecedor",
		ClientName: "Carlos Lima",
		Location:   &loc,
		StartTime:  time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC),
	}
	n := &appointment.Notification{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		Kind:          appointment.NotificationConfirmation,
		Recipient:     "carlos@example.com",
	}

	ev := newEvent(n, appt)
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := decodeEvent(raw)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if decoded.NotificationID != n.ID || decoded.AppointmentID != appt.ID {
		t.Fatal("identifiers lost in transit")
	}
	if decoded.Location != loc {
		t.Fatalf("location = %q, want %q", decoded.Location, loc)
	}
	if decoded.Start != appt.StartTime.Unix() {
		t.Fatalf("start = %d, want %d", decoded.Start, appt.StartTime.Unix())
	}
}

func TestComposeMentionsClientAndWindow(t *testing.T) {
	ev := Event{
		Kind:       string(appointment.NotificationReminder),
		Title:      "Apresentação de resultados",
		ClientName: "Ana Prado",
		Recipient:  "ana@example.com",
		Start:      time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC).Unix(),
		End:        time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC).Unix(),
	}

	subject, body := Compose(ev, time.UTC)
	if !strings.Contains(subject, ev.Title) {
		t.Fatalf("subject %q does not name the appointment", subject)
	}
	if !strings.Contains(body, "Ana Prado") {
		t.Fatalf("body %q does not address the client", body)
	}
	if !strings.Contains(body, "2026-04-10 14:00") || !strings.Contains(body, "15:30") {
		t.Fatalf("body %q does not include the window", body)
	}
}

func TestComposeAppendsLocation(t *testing.T) {
	ev := Event{
		Kind:       string(appointment.NotificationConfirmation),
		Title:      "Almoço executivo",
		ClientName: "Bruno Dias",
		Location:   "Restaurante Vila",
		Start:      time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC).Unix(),
		End:        time.Date(2026, 5, 2, 13, 0, 0, 0, time.UTC).Unix(),
	}
	_, body := Compose(ev, time.UTC)
	if !strings.Contains(body, "Restaurante Vila") {
		t.Fatalf("body %q drops the location", body)
	}
}
