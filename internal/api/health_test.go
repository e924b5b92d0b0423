package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeBroker struct {
	up bool
}

func (f fakeBroker) Healthy() bool { return f.up }

func readiness(t *testing.T, h *HealthHandler) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var body ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode readiness body: %v", err)
	}
	return rec.Code, body
}

func TestReadinessAllUp(t *testing.T) {
	h := &HealthHandler{pg: fakePinger{}, redis: fakePinger{}, broker: fakeBroker{up: true}}

	code, body := readiness(t, h)
	if code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("code=%d status=%q, want 200 ok", code, body.Status)
	}
	for _, dep := range []string{"postgres", "redis", "rabbitmq"} {
		if body.Dependencies[dep] != "ok" {
			t.Fatalf("%s = %q, want ok", dep, body.Dependencies[dep])
		}
	}
}

func TestReadinessPostgresDownIsError(t *testing.T) {
	h := &HealthHandler{pg: fakePinger{err: errors.New("refused")}, redis: fakePinger{}}

	code, body := readiness(t, h)
	if code != http.StatusServiceUnavailable || body.Status != "error" {
		t.Fatalf("code=%d status=%q, want 503 error", code, body.Status)
	}
	if body.Dependencies["postgres"] != "down" {
		t.Fatalf("postgres = %q, want down", body.Dependencies["postgres"])
	}
}

func TestReadinessBrokerDownDegrades(t *testing.T) {
	h := &HealthHandler{pg: fakePinger{}, redis: fakePinger{}, broker: fakeBroker{up: false}}

	code, body := readiness(t, h)
	if code != http.StatusOK {
		t.Fatalf("a degraded broker must not fail readiness, got %d", code)
	}
	if body.Status != "degraded" || body.Dependencies["rabbitmq"] != "down" {
		t.Fatalf("status=%q rabbitmq=%q, want degraded/down", body.Status, body.Dependencies["rabbitmq"])
	}
}

func TestReadinessWithoutBrokerSkipsCheck(t *testing.T) {
	h := &HealthHandler{pg: fakePinger{}, redis: fakePinger{}}

	_, body := readiness(t, h)
	if _, present := body.Dependencies["rabbitmq"]; present {
		t.Fatal("unconfigured broker must not appear in dependencies")
	}
	if body.Status != "ok" {
		t.Fatalf("status = %q, want ok", body.Status)
	}
}
