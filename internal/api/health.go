package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger is the readiness probe contract; pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerHealth reports whether the AMQP connection is still usable. Nil
// means no broker is configured and the check is skipped.
type BrokerHealth interface {
	Healthy() bool
}

type redisPinger struct {
	rdb *redis.Client
}

func (r redisPinger) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

type HealthHandler struct {
	pg      Pinger
	redis   Pinger
	broker  BrokerHealth
	env     string
	version string
}

func NewHealthHandler(pgPool *pgxpool.Pool, rdb *redis.Client, broker BrokerHealth, env, version string) *HealthHandler {
	return &HealthHandler{
		pg:      pgPool,
		redis:   redisPinger{rdb: rdb},
		broker:  broker,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	pgCtx, pgCancel := context.WithTimeout(ctx, 1*time.Second)
	err := h.pg.Ping(pgCtx)
	pgCancel()
	if err != nil {
		deps["postgres"] = "down"
		status = "error"
	} else {
		deps["postgres"] = "ok"
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 1*time.Second)
	err = h.redis.Ping(redisCtx)
	redisCancel()
	if err != nil {
		deps["redis"] = "down"
		// Bookings degrade without the day lock but reads still work.
		status = worsen(status, "degraded")
	} else {
		deps["redis"] = "ok"
	}

	if h.broker != nil {
		if h.broker.Healthy() {
			deps["rabbitmq"] = "ok"
		} else {
			deps["rabbitmq"] = "down"
			// Notifications queue up as FAILED rows; scheduling still works.
			status = worsen(status, "degraded")
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}

func worsen(current, next string) string {
	if current == "error" {
		return current
	}
	return next
}
