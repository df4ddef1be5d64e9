// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/cloudwear/cloudwear-api/internal/model"
)

// CredentialRepository stores login credentials. Credentials are never
// deleted by this system.
type CredentialRepository interface {
	// Create persists a new credential; the implementation assigns the
	// ID and timestamps. Returns a conflict error if the nombre is taken.
	Create(ctx context.Context, cred *model.Credential) error
	GetByNombre(ctx context.Context, nombre string) (*model.Credential, error)
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	ExistsByNombre(ctx context.Context, nombre string) (bool, error)
}

// ProfileRepository stores extended user profiles and provisions their
// per-profile event namespaces.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	// CreateWithCredential writes the credential and its linked profile
	// in a single transaction, so a failure leaves neither behind.
	CreateWithCredential(ctx context.Context, cred *model.Credential, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	ExistsByNombreFechaNacimiento(ctx context.Context, nombre, fechaNacimiento string) (bool, error)
	// Replace overwrites every mutable field of the stored profile.
	Replace(ctx context.Context, profile *model.Profile) error
	// EnsureEventNamespace provisions the named namespace if it does not
	// exist yet. Idempotent; reports whether it was created by this call.
	EnsureEventNamespace(ctx context.Context, name string) (created bool, err error)
}

// TelemetryRepository stores per-(user, day) telemetry records in
// dynamically created partitions.
type TelemetryRepository interface {
	// Append resolves (or lazily creates) the record for (userID, fecha)
	// and appends the given sample batches in arrival order, persisting
	// the full record. Reports whether the record was created by this
	// call. The read-append-write runs in one transaction, so concurrent
	// appends for the same key cannot lose samples.
	Append(ctx context.Context, userID, fecha string,
		cardiacos []model.HeartRateSample,
		acelerometro []model.AccelerometerSample,
		ubicacion []model.LocationSample,
	) (record *model.TelemetryRecord, created bool, err error)
}
