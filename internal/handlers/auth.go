package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/volunteer-hub/apiserver/internal/auth"
	"github.com/volunteer-hub/apiserver/internal/services"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
)

// PrincipalResolver turns a bearer token into the acting principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (types.Principal, error)
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(user types.User) (string, error)
}

// AuthHandler provides registration, login and profile endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      TokenIssuer
	logger      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	tokens TokenIssuer,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewAuthHandler(userService, tokens, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", handler.Profile)
		r.Get("/profile", handler.Profile)
		r.Put("/profile", handler.UpdateProfile)
	})
}

// RequireAuth resolves the bearer token into a principal and injects it
// into the request context.
func RequireAuth(resolver PrincipalResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// Register creates a volunteer account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), principal.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// UpdateProfile applies a partial update to the authenticated user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req services.ProfileInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), principal.ID, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user types.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type UserResponse struct {
	User types.User `json:"user"`
}
