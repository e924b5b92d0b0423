package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/schedule"
)

// FindConflict returns the first pending or confirmed appointment whose
// interval overlaps [candidateStart, candidateEnd), or nil if none does.
//
// excludeID skips one appointment, used when re-validating an existing
// appointment's new time so it cannot conflict with itself.
//
// This function is the single overlap authority for the domain layer; the
// in-process answer is an early rejection only, the database exclusion
// constraint remains the final word under concurrency (see schema.sql).
func FindConflict(candidateStart, candidateEnd time.Time, existing []*Appointment, excludeID *uuid.UUID) *Appointment {
	candidate := schedule.Interval{Start: candidateStart, End: candidateEnd}
	for _, a := range existing {
		if !a.Active() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if schedule.Overlaps(candidate, a.Interval()) {
			return a
		}
	}
	return nil
}
