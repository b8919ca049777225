package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/services"
)

// AssignmentHandler handles assignment roster endpoints and labeler reads.
type AssignmentHandler struct {
	membership    services.MembershipService
	labelerAccess services.LabelerAccessService
	ownership     services.OwnershipService
	access        services.AccessContextService
	logger        *zap.Logger
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(
	membership services.MembershipService,
	labelerAccess services.LabelerAccessService,
	ownership services.OwnershipService,
	access services.AccessContextService,
	logger *zap.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		membership:    membership,
		labelerAccess: labelerAccess,
		ownership:     ownership,
		access:        access,
		logger:        logger,
	}
}

// RegisterRoutes registers the assignment handler's routes on the given mux.
func (h *AssignmentHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("PUT /api/assignments/{aid}/labelers/{lid}",
		authMiddleware.RequireAuth(scoped(h.Assign)))
	mux.HandleFunc("DELETE /api/assignments/{aid}/labelers/{lid}",
		authMiddleware.RequireAuth(scoped(h.Unassign)))
	mux.HandleFunc("GET /api/assignments/{aid}/access",
		authMiddleware.RequireAuth(scoped(h.CheckAccess)))
}

// Assign handles PUT /api/assignments/{aid}/labelers/{lid}. Idempotent.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	assignmentID, labelerID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.membership.AssignLabeler(r.Context(), assignmentID, labelerID, access.UserID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unassign handles DELETE /api/assignments/{aid}/labelers/{lid}.
func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	assignmentID, labelerID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.membership.UnassignLabeler(r.Context(), assignmentID, labelerID, access.UserID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckAccess handles GET /api/assignments/{aid}/access. Reports whether the
// calling labeler may work on the assignment.
func (h *AssignmentHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuid.Parse(r.PathValue("aid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed assignment id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.labelerAccess.EnsureLabelerCanAccess(r.Context(), models.KindAssignment, assignmentID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]bool{"allowed": true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AssignmentHandler) pathIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	assignmentID, err := uuid.Parse(r.PathValue("aid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed assignment id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, uuid.Nil, false
	}

	labelerID, err := uuid.Parse(r.PathValue("lid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed labeler id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, uuid.Nil, false
	}

	return assignmentID, labelerID, true
}
