package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cloudwear/cloudwear-api/internal/apperror"
	"github.com/cloudwear/cloudwear-api/internal/auth"
	"github.com/cloudwear/cloudwear-api/internal/model"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeCredentialRepo, *fakeProfileRepo) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	creds := newFakeCredentialRepo()
	profiles := newFakeProfileRepo(creds)
	svc := NewAuthService(creds, profiles, tokens, auth.NewPasswordService(bcrypt.MinCost), testLogger())
	return svc, creds, profiles
}

func validRegisterFullInput(t *testing.T) *RegisterFullInput {
	t.Helper()
	return &RegisterFullInput{
		Nombre:          "joseantonio",
		Password:        "secret123",
		ApellidoPaterno: "Martinez",
		FechaNacimiento: "2000-05-15",
		Edad:            intPtr(t, 24),
		Sexo:            model.SexMale,
		Email:           "jose@example.com",
		Telefono:        "5512345678",
		DatosLaborales:  &model.EmploymentInfo{NumEmpleado: "EMP001"},
	}
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	cred, err := svc.Register(context.Background(), "ana", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if cred.ID == "" {
		t.Error("Register() returned credential without ID")
	}
	if cred.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}
}

func TestRegister_DuplicateNombre(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana", "secret123"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := svc.Register(ctx, "ana", "othersecret")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "secret"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register(empty nombre) error = %v, want ErrValidation", err)
	}
	if _, err := svc.Register(ctx, "ana", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register(empty password) error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	cred, err := svc.Register(ctx, "ana", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "ana", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("Login() returned empty token")
	}
	if result.ID != cred.ID || result.Nombre != "ana" {
		t.Errorf("Login() result = %+v", result)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, unknownUserErr := svc.Login(ctx, "nobody", "secret123")
	_, wrongPasswordErr := svc.Login(ctx, "ana", "wrong")

	if !errors.Is(unknownUserErr, apperror.ErrUnauthorized) {
		t.Errorf("unknown user error = %v, want ErrUnauthorized", unknownUserErr)
	}
	if !errors.Is(wrongPasswordErr, apperror.ErrUnauthorized) {
		t.Errorf("wrong password error = %v, want ErrUnauthorized", wrongPasswordErr)
	}
	// Same message for both, so responses leak nothing
	if unknownUserErr.Error() != wrongPasswordErr.Error() {
		t.Errorf("failure messages differ: %q vs %q", unknownUserErr, wrongPasswordErr)
	}
}

// =========================================================================
// FULL REGISTRATION TESTS
// =========================================================================

func TestRegisterFull(t *testing.T) {
	svc, _, profiles := newTestAuthService(t)

	cred, profile, err := svc.RegisterFull(context.Background(), validRegisterFullInput(t))
	if err != nil {
		t.Fatalf("RegisterFull() error = %v", err)
	}

	if profile.CredentialID != cred.ID {
		t.Errorf("profile.CredentialID = %q, want %q", profile.CredentialID, cred.ID)
	}
	if !profile.SetupCompleto {
		t.Error("full registration must mark setup complete")
	}
	if _, err := profiles.GetByID(context.Background(), profile.ID); err != nil {
		t.Errorf("profile not persisted: %v", err)
	}
}

func TestRegisterFull_MissingRequiredField(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	tests := []struct {
		name   string
		mutate func(*RegisterFullInput)
	}{
		{"no password", func(in *RegisterFullInput) { in.Password = "" }},
		{"no edad", func(in *RegisterFullInput) { in.Edad = nil }},
		{"bad sexo", func(in *RegisterFullInput) { in.Sexo = "Desconocido" }},
		{"bad email", func(in *RegisterFullInput) { in.Email = "not-an-email" }},
		{"no datosLaborales", func(in *RegisterFullInput) { in.DatosLaborales = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegisterFullInput(t)
			tt.mutate(in)
			_, _, err := svc.RegisterFull(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("RegisterFull() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterFull_SurnamesOptional(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	in := validRegisterFullInput(t)
	in.ApellidoPaterno = ""
	in.ApellidoMaterno = ""
	if _, _, err := svc.RegisterFull(context.Background(), in); err != nil {
		t.Errorf("RegisterFull() without surnames error = %v", err)
	}
}

func TestRegisterFull_DuplicateNombre(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterFull(ctx, validRegisterFullInput(t)); err != nil {
		t.Fatalf("first RegisterFull() error = %v", err)
	}
	_, _, err := svc.RegisterFull(ctx, validRegisterFullInput(t))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("RegisterFull() error = %v, want ErrConflict", err)
	}
}
