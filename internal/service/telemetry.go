package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/metrics"
	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

// ingestUserIDRe matches the partition-key alphabet. Rejecting anything
// else here keeps the dynamic table names closed over a safe charset.
var ingestUserIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// TelemetryService ingests wearable sample batches into per-user,
// per-day records.
type TelemetryService struct {
	telemetry repository.TelemetryRepository
	logger    *slog.Logger

	// now is injectable so tests can pin the ingestion day.
	now func() time.Time
}

// NewTelemetryService creates a TelemetryService using the wall clock.
func NewTelemetryService(telemetry repository.TelemetryRepository, logger *slog.Logger) *TelemetryService {
	return &TelemetryService{
		telemetry: telemetry,
		logger:    logger,
		now:       time.Now,
	}
}

// IngestInput is one telemetry batch. Absent sample arrays are valid;
// an all-empty batch still touches the daily record.
type IngestInput struct {
	UserID            string                      `json:"userId"`
	DatosCardiacos    []model.HeartRateSample     `json:"datosCardiacos"`
	DatosAcelerometro []model.AccelerometerSample `json:"datosAcelerometro"`
	DatosUbicacion    []model.LocationSample      `json:"datosUbicacion"`
}

// Ingest appends the batch to the caller's record for today (UTC). The
// day is resolved once per call so a batch cannot straddle midnight.
func (s *TelemetryService) Ingest(ctx context.Context, in *IngestInput) (*model.TelemetryRecord, error) {
	if in == nil || in.UserID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if !ingestUserIDRe.MatchString(in.UserID) {
		return nil, apperror.ValidationFailed("userId", "userId contains invalid characters")
	}

	fecha := s.now().UTC().Format("20060102")

	record, created, err := s.telemetry.Append(ctx, in.UserID, fecha,
		in.DatosCardiacos, in.DatosAcelerometro, in.DatosUbicacion)
	if err != nil {
		return nil, fmt.Errorf("service/telemetry: ingesting batch for %s/%s: %w", in.UserID, fecha, err)
	}

	if created {
		metrics.ObservePartitionCreated()
	}
	metrics.ObserveSamplesIngested("cardiaco", len(in.DatosCardiacos))
	metrics.ObserveSamplesIngested("acelerometro", len(in.DatosAcelerometro))
	metrics.ObserveSamplesIngested("ubicacion", len(in.DatosUbicacion))

	s.logger.Info("telemetry batch ingested",
		slog.String("userID", in.UserID),
		slog.String("fecha", fecha),
		slog.Int("cardiacos", len(in.DatosCardiacos)),
		slog.Int("acelerometro", len(in.DatosAcelerometro)),
		slog.Int("ubicacion", len(in.DatosUbicacion)),
	)
	return record, nil
}
