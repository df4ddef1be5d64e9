package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCredentialRepo is an in-memory CredentialRepository keyed by nombre.
type fakeCredentialRepo struct {
	byNombre map[string]*model.Credential
	nextID   int
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byNombre: make(map[string]*model.Credential)}
}

func (f *fakeCredentialRepo) Create(_ context.Context, cred *model.Credential) error {
	if _, ok := f.byNombre[cred.Nombre]; ok {
		return apperror.Conflict("credential", cred.Nombre)
	}
	f.nextID++
	cred.ID = fmt.Sprintf("cred-%d", f.nextID)
	cred.CreatedAt = time.Now()
	cred.UpdatedAt = cred.CreatedAt
	f.byNombre[cred.Nombre] = cred
	return nil
}

func (f *fakeCredentialRepo) GetByNombre(_ context.Context, nombre string) (*model.Credential, error) {
	cred, ok := f.byNombre[nombre]
	if !ok {
		return nil, apperror.NotFound("credential", nombre)
	}
	return cred, nil
}

func (f *fakeCredentialRepo) GetByID(_ context.Context, id string) (*model.Credential, error) {
	for _, cred := range f.byNombre {
		if cred.ID == id {
			return cred, nil
		}
	}
	return nil, apperror.NotFound("credential", id)
}

func (f *fakeCredentialRepo) ExistsByNombre(_ context.Context, nombre string) (bool, error) {
	_, ok := f.byNombre[nombre]
	return ok, nil
}

// fakeProfileRepo is an in-memory ProfileRepository that also records
// namespace provisioning calls.
type fakeProfileRepo struct {
	creds      *fakeCredentialRepo
	byID       map[string]*model.Profile
	namespaces map[string]bool
	nextID     int
}

func newFakeProfileRepo(creds *fakeCredentialRepo) *fakeProfileRepo {
	return &fakeProfileRepo{
		creds:      creds,
		byID:       make(map[string]*model.Profile),
		namespaces: make(map[string]bool),
	}
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	f.nextID++
	profile.ID = fmt.Sprintf("prof-%d", f.nextID)
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	clone := *profile
	f.byID[profile.ID] = &clone
	return nil
}

func (f *fakeProfileRepo) CreateWithCredential(ctx context.Context, cred *model.Credential, profile *model.Profile) error {
	if err := f.creds.Create(ctx, cred); err != nil {
		return err
	}
	profile.CredentialID = cred.ID
	return f.Create(ctx, profile)
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProfileRepo) ExistsByNombreFechaNacimiento(_ context.Context, nombre, fechaNacimiento string) (bool, error) {
	for _, p := range f.byID {
		if p.Nombre == nombre && p.FechaNacimiento == fechaNacimiento {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfileRepo) Replace(_ context.Context, profile *model.Profile) error {
	if _, ok := f.byID[profile.ID]; !ok {
		return apperror.NotFound("user", profile.ID)
	}
	profile.UpdatedAt = time.Now()
	clone := *profile
	f.byID[profile.ID] = &clone
	return nil
}

func (f *fakeProfileRepo) EnsureEventNamespace(_ context.Context, name string) (bool, error) {
	if f.namespaces[name] {
		return false, nil
	}
	f.namespaces[name] = true
	return true, nil
}

// fakeTelemetryRepo records Append calls and keeps records per
// (userID, fecha) key so append semantics can be asserted.
type fakeTelemetryRepo struct {
	records    map[string]*model.TelemetryRecord
	lastUserID string
	lastFecha  string
}

func newFakeTelemetryRepo() *fakeTelemetryRepo {
	return &fakeTelemetryRepo{records: make(map[string]*model.TelemetryRecord)}
}

func (f *fakeTelemetryRepo) Append(_ context.Context, userID, fecha string,
	cardiacos []model.HeartRateSample,
	acelerometro []model.AccelerometerSample,
	ubicacion []model.LocationSample,
) (*model.TelemetryRecord, bool, error) {
	f.lastUserID = userID
	f.lastFecha = fecha

	key := userID + "/" + fecha
	record, ok := f.records[key]
	created := !ok
	if created {
		record = &model.TelemetryRecord{
			UserID:            userID,
			Fecha:             fecha,
			DatosCardiacos:    []model.HeartRateSample{},
			DatosAcelerometro: []model.AccelerometerSample{},
			DatosUbicacion:    []model.LocationSample{},
		}
		f.records[key] = record
	}
	record.DatosCardiacos = append(record.DatosCardiacos, cardiacos...)
	record.DatosAcelerometro = append(record.DatosAcelerometro, acelerometro...)
	record.DatosUbicacion = append(record.DatosUbicacion, ubicacion...)
	return record, created, nil
}

func intPtr(t *testing.T, v int) *int {
	t.Helper()
	return &v
}
