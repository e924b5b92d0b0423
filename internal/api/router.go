package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

type RouterConfig struct {
	Service  *appointment.Service
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Broker   BrokerHealth // nil when no broker is configured
	Timezone *time.Location
	Env      string
	Version  string
	Log      zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Broker, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc, loc := cfg.Service, cfg.Timezone

	// Agenda endpoints
	r.Get("/availability", availabilityHandler(svc, loc))

	r.Post("/appointments", createAppointmentHandler(svc, loc))
	r.Get("/appointments", listAppointmentsHandler(svc, loc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Patch("/appointments/{id}", updateAppointmentHandler(svc, loc))

	r.Post("/appointments/{id}/confirm", transitionHandler(func(req *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
		return svc.Confirm(req.Context(), id)
	}))
	r.Post("/appointments/{id}/cancel", transitionHandler(func(req *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
		return svc.Cancel(req.Context(), id)
	}))
	r.Post("/appointments/{id}/reactivate", transitionHandler(func(req *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
		return svc.Reactivate(req.Context(), id)
	}))
	r.Post("/appointments/{id}/complete", transitionHandler(func(req *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
		return svc.Complete(req.Context(), actorFrom(req), id)
	}))

	r.Post("/appointments/series/cancel", cancelSeriesHandler(svc, loc))

	return r
}
