package handler

import (
	"log/slog"
	"net/http"

	"github.com/cloudwear/cloudwear-api/internal/service"
)

// TelemetryHandler serves wearable sample ingestion.
type TelemetryHandler struct {
	telemetry *service.TelemetryService
	logger    *slog.Logger
}

// NewTelemetryHandler creates a TelemetryHandler.
func NewTelemetryHandler(telemetry *service.TelemetryService, logger *slog.Logger) *TelemetryHandler {
	return &TelemetryHandler{telemetry: telemetry, logger: logger}
}

// HandleIngest appends a telemetry batch to the caller's record for
// today. The response acknowledges only; clients never read back.
//
// HTTP: POST /biometricos
func (h *TelemetryHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req service.IngestInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.telemetry.Ingest(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Datos guardados correctamente",
	})
}
