package model

import "time"

// HeartRateSample is one heart-rate reading. Timestamp is the client's
// epoch-milliseconds clock; samples are trusted and stored in arrival
// order, no monotonicity check is performed.
type HeartRateSample struct {
	Timestamp  int64   `json:"timestamp"`
	Frecuencia float64 `json:"frecuencia"`
}

// AccelerometerSample is one three-axis accelerometer reading.
type AccelerometerSample struct {
	Timestamp int64   `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// LocationSample is one GPS reading.
type LocationSample struct {
	Timestamp int64   `json:"timestamp"`
	Latitud   float64 `json:"latitud"`
	Longitud  float64 `json:"longitud"`
}

// TelemetryRecord is the per-(user, day) container of sample sequences.
// Fecha is the server-local UTC date in yyyyMMdd form, computed once per
// ingestion request. Exactly one record exists per user per calendar day;
// ingestions after the first append to the existing sequences.
type TelemetryRecord struct {
	UserID            string                `json:"userId"`
	Fecha             string                `json:"fecha"`
	DatosCardiacos    []HeartRateSample     `json:"datosCardiacos"`
	DatosAcelerometro []AccelerometerSample `json:"datosAcelerometro"`
	DatosUbicacion    []LocationSample      `json:"datosUbicacion"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}
