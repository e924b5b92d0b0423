package appointment

import (
	"net/mail"
	"strings"
	"time"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
)

var validTypes = map[Type]bool{
	TypeMeeting:      true,
	TypeCall:         true,
	TypePresentation: true,
	TypeParticular:   true,
	TypeViagem:       true,
	TypeOther:        true,
}

// CreateInput is the validated payload for creating appointments. Dates and
// Recurrence are mutually independent extensions of the single-creation flow:
// Dates drives multi-date batch creation, Recurrence drives series expansion.
type CreateInput struct {
	Title       string
	Description *string
	Location    *string

	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int

	Type Type

	ClientName    string
	ClientEmail   string
	ClientPhone   *string
	ClientCompany *string

	Participants []Participant

	Recurrence *schedule.Rule
	Dates      []time.Time // additional calendar days for multi-date creation
}

// Validate checks the input before any conflict check or persistence call.
func (in *CreateInput) Validate() error {
	v := &ValidationError{}

	if strings.TrimSpace(in.Title) == "" {
		v.add("title", "title is required")
	}
	if in.StartTime.IsZero() {
		v.add("start_time", "start_time is required")
	}
	if in.EndTime.IsZero() {
		v.add("end_time", "end_time is required")
	}
	if !in.StartTime.IsZero() && !in.EndTime.IsZero() {
		if !in.EndTime.After(in.StartTime) {
			v.add("end_time", "end_time must be after start_time")
		} else {
			minutes := int(in.EndTime.Sub(in.StartTime).Minutes())
			if in.DurationMinutes == 0 {
				in.DurationMinutes = minutes
			}
			if in.DurationMinutes != minutes {
				v.add("duration", "duration must equal end_time - start_time in minutes")
			}
			if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
				v.add("duration", "duration must be between 15 and 480 minutes")
			}
		}
	}

	if !validTypes[in.Type] {
		v.add("type", "unknown appointment type")
	}

	if strings.TrimSpace(in.ClientName) == "" {
		v.add("client_name", "client name is required")
	}
	if !validEmail(in.ClientEmail) {
		v.add("client_email", "a valid client email is required")
	}

	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if !validEmail(p.Email) {
			v.add("participants", "participant "+p.Name+" has an invalid email")
			continue
		}
		key := strings.ToLower(p.Email)
		if seen[key] {
			v.add("participants", "duplicate participant email "+p.Email)
		}
		seen[key] = true
	}

	if in.Recurrence != nil {
		if err := in.Recurrence.Validate(); err != nil {
			v.add("recurrence", err.Error())
		}
	}

	if v.hasErrors() {
		return v
	}
	return nil
}

func validEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
