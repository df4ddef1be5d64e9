package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/metrics"
	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

// immutableProfileFields are stripped from partial updates before the
// merge; callers cannot reassign identity or ownership through a PATCH.
var immutableProfileFields = []string{"_id", "authUserId", "createdAt", "updatedAt"}

// ProfileService manages wearer profiles and their event namespaces.
type ProfileService struct {
	profiles repository.ProfileRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(profiles repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		validate: newValidator(),
		logger:   logger,
	}
}

// UpdateProfileInput is the payload of a complete profile update. The
// whole document is replaced, so the core identity fields are required.
type UpdateProfileInput struct {
	Nombre          string                `json:"nombre" validate:"required"`
	ApellidoPaterno string                `json:"apellidoPaterno"`
	ApellidoMaterno string                `json:"apellidoMaterno"`
	FechaNacimiento string                `json:"fechaNacimiento" validate:"required"`
	Edad            *int                  `json:"edad" validate:"required"`
	Sexo            string                `json:"sexo" validate:"required,oneof=Masculino Femenino Otro"`
	Email           string                `json:"email"`
	Telefono        string                `json:"telefono"`
	DatosLaborales  *model.EmploymentInfo `json:"datosLaborales" validate:"required"`
	DatosMedicos    *model.MedicalInfo    `json:"datosMedicos"`
}

// eventNamespaceName derives the per-user event namespace from the
// wearer's nombre: lowercased, spaces to underscores, anything outside
// the namespace alphabet dropped.
func eventNamespaceName(nombre string) string {
	lowered := strings.ToLower(strings.TrimSpace(nombre))
	var b strings.Builder
	b.WriteString("eventos_")
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		case r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// CreateWithSetup stores a new profile and provisions its event
// namespace. Duplicate detection is by (nombre, fechaNacimiento); the
// document itself is accepted as sent, matching the deployed contract.
func (s *ProfileService) CreateWithSetup(ctx context.Context, profile *model.Profile) (string, error) {
	if profile == nil || strings.TrimSpace(profile.Nombre) == "" {
		return "", apperror.ValidationFailed("nombre", "nombre is required")
	}

	exists, err := s.profiles.ExistsByNombreFechaNacimiento(ctx, profile.Nombre, profile.FechaNacimiento)
	if err != nil {
		return "", fmt.Errorf("service/profile: checking duplicate for %s: %w", profile.Nombre, err)
	}
	if exists {
		return "", apperror.Conflict("user", profile.Nombre)
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return "", fmt.Errorf("service/profile: creating profile for %s: %w", profile.Nombre, err)
	}

	namespace := eventNamespaceName(profile.Nombre)
	created, err := s.profiles.EnsureEventNamespace(ctx, namespace)
	if err != nil {
		// The profile row is already committed; namespace provisioning
		// is retried lazily on the next lookup rather than rolled back.
		s.logger.Error("event namespace provisioning failed",
			slog.String("profileID", profile.ID),
			slog.String("namespace", namespace),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("service/profile: provisioning namespace %s: %w", namespace, err)
	}
	if created {
		metrics.ObserveNamespaceCreated()
	}

	s.logger.Info("profile created",
		slog.String("profileID", profile.ID),
		slog.String("namespace", namespace),
	)
	return namespace, nil
}

// Get returns the profile with the given ID.
func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.profiles.GetByID(ctx, id)
}

// UpdateComplete replaces the whole profile document and marks the
// initial setup as done.
func (s *ProfileService) UpdateComplete(ctx context.Context, id string, in *UpdateProfileInput) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	medicos := in.DatosMedicos
	if medicos == nil {
		medicos = &model.MedicalInfo{}
	}

	updated := &model.Profile{
		ID:              existing.ID,
		CredentialID:    existing.CredentialID,
		Nombre:          in.Nombre,
		ApellidoPaterno: in.ApellidoPaterno,
		ApellidoMaterno: in.ApellidoMaterno,
		FechaNacimiento: in.FechaNacimiento,
		Edad:            *in.Edad,
		Sexo:            in.Sexo,
		Email:           in.Email,
		Telefono:        in.Telefono,
		DatosLaborales:  in.DatosLaborales,
		DatosMedicos:    medicos,
		SetupCompleto:   true,
		CreatedAt:       existing.CreatedAt,
	}

	if err := s.profiles.Replace(ctx, updated); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("profileID", id))
	return updated, nil
}

// UpdatePartial overlays the supplied fields on the stored document and
// persists the result. Unknown keys are ignored by the final decode;
// identity fields cannot be changed.
func (s *ProfileService) UpdatePartial(ctx context.Context, id string, patch map[string]json.RawMessage) (*model.Profile, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	if len(patch) == 0 {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	existing, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, field := range immutableProfileFields {
		delete(patch, field)
	}

	// Merge over the JSON form of the stored document so partial
	// sub-documents replace wholesale, like the original contract.
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("service/profile: encoding profile %s: %w", id, err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("service/profile: decoding profile %s: %w", id, err)
	}
	for k, v := range patch {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("service/profile: encoding merge for %s: %w", id, err)
	}

	updated := &model.Profile{}
	if err := json.Unmarshal(merged, updated); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
			return nil, apperror.ValidationFailed("", "invalid field value in update")
		}
		return nil, fmt.Errorf("service/profile: decoding merge for %s: %w", id, err)
	}
	updated.ID = existing.ID
	updated.CredentialID = existing.CredentialID
	updated.CreatedAt = existing.CreatedAt

	// Field rules apply to patched fields only: untouched fields were
	// already accepted when they were written.
	if _, ok := patch["nombre"]; ok && strings.TrimSpace(updated.Nombre) == "" {
		return nil, apperror.ValidationFailed("nombre", "nombre cannot be empty")
	}
	if _, ok := patch["sexo"]; ok {
		if err := s.validate.Var(updated.Sexo, "oneof=Masculino Femenino Otro"); err != nil {
			return nil, apperror.ValidationFailed("sexo", "sexo must be Masculino, Femenino or Otro")
		}
	}

	if err := s.profiles.Replace(ctx, updated); err != nil {
		return nil, err
	}

	s.logger.Info("profile patched",
		slog.String("profileID", id),
		slog.Int("fields", len(patch)),
	)
	return updated, nil
}
