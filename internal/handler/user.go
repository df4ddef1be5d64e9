package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudwear/cloudwear-api/internal/model"
	"github.com/cloudwear/cloudwear-api/internal/service"
)

// UserHandler serves profile creation and both update flavors.
type UserHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(profiles *service.ProfileService, logger *slog.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, logger: logger}
}

// HandleCreate stores a new profile and provisions its event namespace.
//
// HTTP: POST /users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, err)
		return
	}
	// Client-supplied identity fields are ignored; storage assigns them.
	profile.ID = ""
	profile.CredentialID = ""

	namespace, err := h.profiles.CreateWithSetup(r.Context(), &profile)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":           "Usuario creado correctamente",
		"user":              profile,
		"eventosCollection": namespace,
	})
}

// HandleUpdateComplete replaces the whole profile and marks setup done.
//
// HTTP: PUT /users/{id}
func (h *UserHandler) HandleUpdateComplete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.UpdateProfileInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateComplete(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdatePartial merges the supplied top-level fields into the
// stored profile. Nested objects are replaced wholesale.
//
// HTTP: PATCH /users/{id}
func (h *UserHandler) HandleUpdatePartial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch map[string]json.RawMessage
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdatePartial(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
