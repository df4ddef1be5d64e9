package handler

import (
	"context"
	"net/http"
)

// Pinger is the slice of the database the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the service banner and the liveness check.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleHome returns the service banner.
//
// HTTP: GET /
func (h *HealthHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API de CloudWear funcionando correctamente",
	})
}

// HandleHealthz reports liveness, including a database ping.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
