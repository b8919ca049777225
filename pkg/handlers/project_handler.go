package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/services"
)

// ScopeMiddleware wraps a handler with a request-scoped database connection.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ProjectHandler handles project CRUD and membership endpoints.
type ProjectHandler struct {
	projectService services.ProjectService
	membership     services.MembershipService
	access         services.AccessContextService
	logger         *zap.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(
	projectService services.ProjectService,
	membership services.MembershipService,
	access services.AccessContextService,
	logger *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		membership:     membership,
		access:         access,
		logger:         logger,
	}
}

// RegisterRoutes registers the project handler's routes on the given mux.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("POST /api/projects",
		authMiddleware.RequireAuth(scoped(h.Create)))
	mux.HandleFunc("GET /api/projects/{pid}",
		authMiddleware.RequireAuth(scoped(h.Get)))
	mux.HandleFunc("PATCH /api/projects/{pid}",
		authMiddleware.RequireAuth(scoped(h.Update)))
	mux.HandleFunc("DELETE /api/projects/{pid}",
		authMiddleware.RequireAuth(scoped(h.Delete)))

	mux.HandleFunc("POST /api/projects/join",
		authMiddleware.RequireAuth(scoped(h.Join)))
	mux.HandleFunc("POST /api/projects/{pid}/unassign-all",
		authMiddleware.RequireAuth(scoped(h.UnassignAll)))
	mux.HandleFunc("POST /api/projects/{pid}/distribute-labelers",
		authMiddleware.RequireAuth(scoped(h.DistributeLabelers)))
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Project name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.projectService.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "pid")
	if !ok {
		return
	}

	project, err := h.projectService.Get(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/projects/{pid}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "pid")
	if !ok {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Project name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.projectService.Update(r.Context(), projectID, req.Name, req.Description)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "pid")
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), projectID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type joinProjectRequest struct {
	Code string `json:"code"`
}

// Join handles POST /api/projects/join. The calling labeler redeems an
// access code; the project id comes from the code, not the request.
func (h *ProjectHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Access code is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project, err := h.membership.JoinProject(r.Context(), req.Code)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UnassignAll handles POST /api/projects/{pid}/unassign-all.
func (h *ProjectHandler) UnassignAll(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "pid")
	if !ok {
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.membership.UnassignAllLabelers(r.Context(), projectID, access.UserID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DistributeLabelers handles POST /api/projects/{pid}/distribute-labelers.
func (h *ProjectHandler) DistributeLabelers(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "pid")
	if !ok {
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.membership.DistributeLabelersEqually(r.Context(), projectID, access.UserID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed id in path"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
