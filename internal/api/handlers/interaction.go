package handlers

import (
	"net/http"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/service"
	"go.uber.org/zap"
)

type InteractionHandler struct {
	svc    *service.InteractionService
	logger *zap.Logger
}

func NewInteractionHandler(svc *service.InteractionService, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{svc: svc, logger: logger}
}

type recordInteractionRequest struct {
	UserID      string `json:"user_id"`
	ClinicianID string `json:"clinician_id"`
	Action      string `json:"action"`
}

// Record stores a viewed, clicked or booked interaction.
// POST /v1/interactions
func (h *InteractionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordInteractionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	in := &domain.Interaction{
		UserID:      req.UserID,
		ClinicianID: req.ClinicianID,
		Action:      domain.InteractionAction(req.Action),
	}
	if err := h.svc.Record(r.Context(), in); err != nil {
		writeServiceError(w, h.logger, err, "failed to record interaction")
		return
	}
	writeJSON(w, http.StatusCreated, in)
}
