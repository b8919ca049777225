package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/models"
	"github.com/vidmark-labs/vidmark-engine/pkg/services"
)

// AccessCodeHandler handles access code lifecycle endpoints.
type AccessCodeHandler struct {
	codes     services.AccessCodeService
	ownership services.OwnershipService
	access    services.AccessContextService
	logger    *zap.Logger
}

// NewAccessCodeHandler creates a new access code handler.
func NewAccessCodeHandler(
	codes services.AccessCodeService,
	ownership services.OwnershipService,
	access services.AccessContextService,
	logger *zap.Logger,
) *AccessCodeHandler {
	return &AccessCodeHandler{
		codes:     codes,
		ownership: ownership,
		access:    access,
		logger:    logger,
	}
}

// RegisterRoutes registers the access code handler's routes on the given mux.
func (h *AccessCodeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scoped ScopeMiddleware) {
	mux.HandleFunc("POST /api/projects/{pid}/access-codes",
		authMiddleware.RequireAuth(scoped(h.IssueOrRotate)))
	mux.HandleFunc("GET /api/projects/{pid}/access-codes",
		authMiddleware.RequireAuth(scoped(h.List)))
	mux.HandleFunc("POST /api/access-codes/validate",
		scoped(h.Validate))
	mux.HandleFunc("POST /api/access-codes/retire",
		authMiddleware.RequireAuth(scoped(h.Retire)))
}

type issueCodeRequest struct {
	Expiration models.AccessCodeExpiration `json:"expiration"`
	CustomDays int                         `json:"custom_days,omitempty"`
}

// IssueOrRotate handles POST /api/projects/{pid}/access-codes.
// Issues a fresh code, retiring the project's current live code if one
// exists. Requires ownership of the project.
func (h *AccessCodeHandler) IssueOrRotate(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed project id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req issueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Malformed request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Expiration == "" {
		req.Expiration = models.ExpirationIn14Days
	}

	if err := h.ownership.EnsureScientistOwns(r.Context(), models.KindProject, projectID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	code, err := h.codes.IssueOrRotate(r.Context(), projectID, access.UserID, req.Expiration, req.CustomDays)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, code); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/projects/{pid}/access-codes.
func (h *AccessCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Malformed project id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.ownership.EnsureScientistOwns(r.Context(), models.KindProject, projectID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	codes, err := h.codes.ListByProject(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, codes); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type validateCodeRequest struct {
	Code string `json:"code"`
}

type validateCodeResponse struct {
	Valid bool `json:"valid"`
}

// Validate handles POST /api/access-codes/validate. Unauthenticated on
// purpose: a prospective labeler checks a code before logging in. The
// response is a bare boolean either way, so callers cannot probe which
// codes exist.
func (h *AccessCodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Access code is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	valid, err := h.codes.Validate(r.Context(), req.Code)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, validateCodeResponse{Valid: valid}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type retireCodeRequest struct {
	Code string `json:"code"`
}

// Retire handles POST /api/access-codes/retire.
func (h *AccessCodeHandler) Retire(w http.ResponseWriter, r *http.Request) {
	var req retireCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Access code is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	access, err := h.access.Resolve(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.codes.Retire(r.Context(), req.Code, access.UserID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
