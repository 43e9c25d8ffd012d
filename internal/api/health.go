package api

import (
	"context"
	"net/http"
	"slices"
	"time"
)

// Pinger checks one optional dependency. The ledger itself lives in memory and is always ready.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]Pinger
	env     string
	version string
}

func NewHealthHandler(checks map[string]Pinger, env, version string) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
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
	writeJSON(w, r, http.StatusOK, resp)
}

// Readiness reports "degraded" when the journal or the notification outbox is down.
// Bookings keep working in that state, so the response stays 200.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{"ledger": "ok"}
	status := "ok"

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		depCtx, depCancel := context.WithTimeout(ctx, time.Second)
		err := h.checks[name](depCtx)
		depCancel()
		if err != nil {
			deps[name] = "down"
			status = "degraded"
		} else {
			deps[name] = "ok"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	writeJSON(w, r, http.StatusOK, resp)
}
