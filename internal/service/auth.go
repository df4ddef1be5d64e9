package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/auth"
	"github.com/cloudwear/cloudwear-api/internal/metrics"
	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/repository"
)

// badCredentialsMsg is shared by every login failure path so the
// response never reveals which of the two fields was wrong.
const badCredentialsMsg = "invalid username or password"

// AuthService handles registration, login and token issuance.
type AuthService struct {
	credentials repository.CredentialRepository
	profiles    repository.ProfileRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	credentials repository.CredentialRepository,
	profiles repository.ProfileRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		credentials: credentials,
		profiles:    profiles,
		tokens:      tokens,
		passwords:   passwords,
		validate:    newValidator(),
		logger:      logger,
	}
}

// LoginResult bundles what the login response needs: the signed token
// plus the username and credential id echoed in plaintext.
type LoginResult struct {
	Token  string
	Nombre string
	ID     string
}

// RegisterFullInput is the payload of full registration: a credential
// plus the complete profile in one request. Required fields follow the
// deployed contract — the surnames notably are not required.
type RegisterFullInput struct {
	Nombre          string                `json:"nombre" validate:"required"`
	Password        string                `json:"password" validate:"required"`
	ApellidoPaterno string                `json:"apellidoPaterno"`
	ApellidoMaterno string                `json:"apellidoMaterno"`
	FechaNacimiento string                `json:"fechaNacimiento" validate:"required"`
	Edad            *int                  `json:"edad" validate:"required"`
	Sexo            string                `json:"sexo" validate:"required,oneof=Masculino Femenino Otro"`
	Email           string                `json:"email" validate:"required,email"`
	Telefono        string                `json:"telefono" validate:"required"`
	DatosLaborales  *model.EmploymentInfo `json:"datosLaborales" validate:"required"`
	DatosMedicos    *model.MedicalInfo    `json:"datosMedicos"`
}

// Register creates a login credential. Fails with a conflict error when
// the nombre is already registered. Nothing sensitive is returned — the
// handler only acknowledges.
func (s *AuthService) Register(ctx context.Context, nombre, password string) (*model.Credential, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil, apperror.ValidationFailed("nombre", "nombre and password are required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "nombre and password are required")
	}

	exists, err := s.credentials.ExistsByNombre(ctx, nombre)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking nombre %s: %w", nombre, err)
	}
	if exists {
		return nil, apperror.Conflict("credential", nombre)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	cred := &model.Credential{Nombre: nombre, PasswordHash: hash}
	if err := s.credentials.Create(ctx, cred); err != nil {
		// The UNIQUE column catches registrations that raced past the
		// pre-check; the conflict error passes through unchanged.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating credential %s: %w", nombre, err)
	}

	s.logger.Info("credential registered", slog.String("credentialID", cred.ID))
	return cred, nil
}

// Login verifies the password and issues a signed token carrying the
// credential id and nombre, expiring after the configured TTL.
func (s *AuthService) Login(ctx context.Context, nombre, password string) (*LoginResult, error) {
	if strings.TrimSpace(nombre) == "" || password == "" {
		return nil, apperror.ValidationFailed("nombre", "nombre and password are required")
	}

	cred, err := s.credentials.GetByNombre(ctx, nombre)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			metrics.ObserveLogin("failure")
			return nil, apperror.Unauthorized(badCredentialsMsg)
		}
		return nil, fmt.Errorf("service/auth: fetching credential %s: %w", nombre, err)
	}

	if err := s.passwords.Verify(cred.PasswordHash, password); err != nil {
		metrics.ObserveLogin("failure")
		return nil, apperror.Unauthorized(badCredentialsMsg)
	}

	token, err := s.tokens.Generate(cred.ID, cred.Nombre)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", cred.ID, err)
	}

	metrics.ObserveLogin("success")
	s.logger.Info("user logged in", slog.String("credentialID", cred.ID))

	return &LoginResult{Token: token, Nombre: cred.Nombre, ID: cred.ID}, nil
}

// RegisterFull creates a credential and its linked profile in one
// transactional write, with setup marked complete.
func (s *AuthService) RegisterFull(ctx context.Context, in *RegisterFullInput) (*model.Credential, *model.Profile, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, validationError(err)
	}

	nombre := strings.TrimSpace(in.Nombre)
	exists, err := s.credentials.ExistsByNombre(ctx, nombre)
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: checking nombre %s: %w", nombre, err)
	}
	if exists {
		return nil, nil, apperror.Conflict("credential", nombre)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	cred := &model.Credential{Nombre: nombre, PasswordHash: hash}
	profile := &model.Profile{
		Nombre:          nombre,
		ApellidoPaterno: in.ApellidoPaterno,
		ApellidoMaterno: in.ApellidoMaterno,
		FechaNacimiento: in.FechaNacimiento,
		Edad:            *in.Edad,
		Sexo:            in.Sexo,
		Email:           in.Email,
		Telefono:        in.Telefono,
		DatosLaborales:  in.DatosLaborales,
		DatosMedicos:    in.DatosMedicos,
		SetupCompleto:   true,
	}

	if err := s.profiles.CreateWithCredential(ctx, cred, profile); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("service/auth: full registration for %s: %w", nombre, err)
	}

	s.logger.Info("full registration completed",
		slog.String("credentialID", cred.ID),
		slog.String("profileID", profile.ID),
	)

	return cred, profile, nil
}

// GetCredential returns the credential for the given internal ID.
// Used by the /auth/me handler after the middleware validates the token.
func (s *AuthService) GetCredential(ctx context.Context, id string) (*model.Credential, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "credential ID is required")
	}
	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return cred, nil
}
