package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

var knownRoles = map[appointment.Role]bool{
	appointment.RoleAdmin:     true,
	appointment.RoleSecretary: true,
	appointment.RoleStaff:     true,
}

// actorFrom reads the caller identity the gateway injects. An absent or
// unknown role degrades to staff, the least privileged one.
func actorFrom(r *http.Request) appointment.Actor {
	actor := appointment.Actor{Role: appointment.RoleStaff}

	if role := appointment.Role(r.Header.Get("X-Actor-Role")); knownRoles[role] {
		actor.Role = role
	}
	if id, err := uuid.Parse(r.Header.Get("X-Actor-Id")); err == nil {
		actor.ID = id
	}
	return actor
}
