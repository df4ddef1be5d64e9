package handler

import (
	"log/slog"
	"net/http"

	"github.com/cloudwear/cloudwear-api/internal/auth"
	"github.com/cloudwear/cloudwear-api/internal/service"
)

// AuthHandler serves credential registration, login and the
// token-holder profile endpoint.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

type credentialsRequest struct {
	Nombre   string `json:"nombre"`
	Password string `json:"password"`
}

// HandleRegister creates a login credential.
//
// HTTP: POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.auth.Register(r.Context(), req.Nombre, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Usuario registrado correctamente",
	})
}

// HandleLogin verifies credentials and returns a bearer token.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Nombre, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":  result.Token,
		"nombre": result.Nombre,
		"id":     result.ID,
	})
}

// HandleRegisterFull creates a credential plus its full profile in one
// request.
//
// HTTP: POST /auth/register-full
func (h *AuthHandler) HandleRegisterFull(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterFullInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cred, profile, err := h.auth.RegisterFull(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Usuario registrado correctamente",
		"userAuth":    cred,
		"userProfile": profile,
	})
}

// HandleMe returns the credential of the bearer-token holder.
//
// HTTP: GET /auth/me
// Auth: required (RequireAuth puts the identity in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, kept as a guard.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "bearer token required",
		})
		return
	}

	cred, err := h.auth.GetCredential(r.Context(), identity.CredentialID)
	if err != nil {
		h.logger.Error("HandleMe: credential lookup failed",
			slog.String("credentialID", identity.CredentialID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     cred.ID,
		"nombre": cred.Nombre,
	})
}
