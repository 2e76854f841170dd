package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lunajoy/matchengine/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc    *service.MatchingService
	logger *zap.Logger
}

func NewUserHandler(svc *service.MatchingService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Get returns a stored user.
// GET /v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
