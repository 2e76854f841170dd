package handlers

import (
	"net/http"
	"time"

	"github.com/lunajoy/matchengine/internal/service"
	"go.uber.org/zap"
)

type ReferenceHandler struct {
	data   *service.ReferenceData
	logger *zap.Logger
}

func NewReferenceHandler(data *service.ReferenceData, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{data: data, logger: logger}
}

type referenceResponse struct {
	BuiltAt      time.Time `json:"built_at"`
	Users        int       `json:"users"`
	Interactions int       `json:"interactions"`
	Clusters     int       `json:"clusters"`
}

func snapshotResponse(s *service.ReferenceSnapshot) referenceResponse {
	return referenceResponse{
		BuiltAt:      s.BuiltAt,
		Users:        s.UserCount,
		Interactions: s.InteractionCount,
		Clusters:     len(s.Favorites),
	}
}

// Refresh rebuilds the interaction matrix and cluster favourites now.
// POST /v1/admin/reference/refresh
func (h *ReferenceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.data.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to refresh reference data")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// Get describes the current snapshot, building the first one if needed.
// GET /v1/admin/reference
func (h *ReferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.data.Ensure(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load reference data")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}
