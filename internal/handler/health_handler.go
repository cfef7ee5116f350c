package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck checks one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		writeErrorData(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "a dependency is unavailable",
			map[string]any{"status": "degraded", "checks": results})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok", "checks": results})
}
