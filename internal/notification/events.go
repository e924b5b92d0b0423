package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

// Exchange is the topic exchange every agenda event goes through.
const Exchange = "agenda.notifications"

// Routing keys, one per notification kind.
const (
	RKAppointmentRequested   = "appointment.requested"
	RKAppointmentConfirmed   = "appointment.confirmed"
	RKAppointmentReminder    = "appointment.reminder"
	RKAppointmentCancelled   = "appointment.cancelled"
	RKAppointmentRescheduled = "appointment.rescheduled"
)

var routingKeys = map[appointment.NotificationKind]string{
	appointment.NotificationNewRequest:   RKAppointmentRequested,
	appointment.NotificationConfirmation: RKAppointmentConfirmed,
	appointment.NotificationReminder:     RKAppointmentReminder,
	appointment.NotificationCancellation: RKAppointmentCancelled,
	appointment.NotificationRescheduled:  RKAppointmentRescheduled,
}

// RoutingKey maps a notification kind to its routing key.
func RoutingKey(kind appointment.NotificationKind) (string, error) {
	rk, ok := routingKeys[kind]
	if !ok {
		return "", fmt.Errorf("no routing key for notification kind %q", kind)
	}
	return rk, nil
}

// Event carries enough of the appointment for the worker to compose a
// message without a database round trip. The notification id lets the
// worker report delivery status back.
type Event struct {
	NotificationID uuid.UUID `json:"notification_id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	Kind           string    `json:"kind"`
	Recipient      string    `json:"recipient"`
	Title          string    `json:"title"`
	ClientName     string    `json:"client_name"`
	Location       string    `json:"location,omitempty"`
	Start          int64     `json:"start"` // unix seconds
	End            int64     `json:"end"`
}

func newEvent(n *appointment.Notification, appt *appointment.Appointment) Event {
	ev := Event{
		NotificationID: n.ID,
		AppointmentID:  appt.ID,
		Kind:           string(n.Kind),
		Recipient:      n.Recipient,
		Title:          appt.Title,
		ClientName:     appt.ClientName,
		Start:          appt.StartTime.Unix(),
		End:            appt.EndTime.Unix(),
	}
	if appt.Location != nil {
		ev.Location = *appt.Location
	}
	return ev
}

func decodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	return ev, nil
}

// HumanTimeRange renders the appointment window for message bodies.
func HumanTimeRange(startUnix, endUnix int64, loc *time.Location) string {
	st := time.Unix(startUnix, 0).In(loc)
	et := time.Unix(endUnix, 0).In(loc)
	return fmt.Sprintf("%s - %s", st.Format("2006-01-02 15:04"), et.Format("15:04"))
}
