package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/internal/services"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler serves the volunteer directory.
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers volunteer routes. All of them need a principal.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewUserHandler(userService, logger)

	r.Use(authMiddleware)
	r.Get("/volunteers", handler.ListVolunteers)
	r.Get("/volunteers/{id}", handler.GetVolunteer)
	r.Put("/volunteers/{id}/status", handler.SetActive)
}

type ActivationRequest struct {
	IsActive *bool `json:"isActive"`
}

// ListVolunteers returns active volunteers.
func (h *UserHandler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	volunteers, err := h.userService.ListVolunteers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if volunteers == nil {
		volunteers = []types.User{}
	}
	writeJSON(w, http.StatusOK, volunteers)
}

// GetVolunteer returns one active volunteer.
func (h *UserHandler) GetVolunteer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	volunteer, err := h.userService.GetVolunteer(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: volunteer})
}

// SetActive activates or deactivates an account.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req ActivationRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.IsActive == nil {
		writeServiceError(w, h.logger, apperr.Invalid("isActive", "is required"))
		return
	}

	user, err := h.userService.SetActive(r.Context(), principal, id, *req.IsActive)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}
