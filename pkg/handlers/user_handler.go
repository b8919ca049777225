package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/services"
)

// UserHandler handles user provisioning endpoints.
type UserHandler struct {
	userService services.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the user handler's routes on the given mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("POST /api/users/register",
		authMiddleware.RequireAuth(scoped(h.Register)))
	mux.HandleFunc("GET /api/users/{uid}",
		authMiddleware.RequireAuth(scoped(h.Get)))
	mux.HandleFunc("PUT /api/users/{uid}/roles",
		authMiddleware.RequireAuth(scoped(h.SetRoles)))
}

// Register handles POST /api/users/register. The record is built from the
// caller's token claims; the request carries no body.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Register(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/users/{uid}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed id in path"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type setRolesRequest struct {
	Roles []string `json:"roles"`
}

// SetRoles handles PUT /api/users/{uid}/roles.
func (h *UserHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed id in path"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req setRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Roles list is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.SetRoles(r.Context(), userID, req.Roles)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
