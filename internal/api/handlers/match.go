package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/service"
	"go.uber.org/zap"
)

type MatchHandler struct {
	svc    *service.MatchingService
	logger *zap.Logger
}

func NewMatchHandler(svc *service.MatchingService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{svc: svc, logger: logger}
}

type matchUserRequest struct {
	Limit               int  `json:"limit,omitempty"`
	IncludeExplanations bool `json:"include_explanations,omitempty"`
}

// Match ranks clinicians for an ad-hoc request carrying its own tier data.
// POST /v1/match
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req domain.MatchRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	resp, err := h.svc.Match(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to match clinicians")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// MatchUser ranks clinicians for a stored user. The body is optional.
// POST /v1/users/{id}/match
func (h *MatchHandler) MatchUser(w http.ResponseWriter, r *http.Request) {
	var req matchUserRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	resp, err := h.svc.MatchUser(r.Context(), chi.URLParam(r, "id"), service.MatchOptions{
		Limit:               req.Limit,
		IncludeExplanations: req.IncludeExplanations,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to match clinicians")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
