package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/service"
	"go.uber.org/zap"
)

type ClinicianHandler struct {
	svc    *service.MatchingService
	logger *zap.Logger
}

func NewClinicianHandler(svc *service.MatchingService, logger *zap.Logger) *ClinicianHandler {
	return &ClinicianHandler{svc: svc, logger: logger}
}

type listCliniciansResponse struct {
	Clinicians []domain.Clinician `json:"clinicians"`
	Count      int                `json:"count"`
}

// List returns the catalogue, optionally narrowed by licensed state and
// appointment type.
// GET /v1/clinicians?state=CA&appointment_type=therapy
func (h *ClinicianHandler) List(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state")))
	appt := r.URL.Query().Get("appointment_type")
	if appt != "" && !domain.ValidAppointmentType(appt) {
		writeError(w, http.StatusBadRequest, "appointment_type must be therapy or medication")
		return
	}

	clinicians, err := h.svc.ListClinicians(r.Context(), state, domain.AppointmentType(appt))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list clinicians")
		return
	}
	if clinicians == nil {
		clinicians = []domain.Clinician{}
	}
	writeJSON(w, http.StatusOK, listCliniciansResponse{Clinicians: clinicians, Count: len(clinicians)})
}

// Get returns a single clinician.
// GET /v1/clinicians/{id}
func (h *ClinicianHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetClinician(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get clinician")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
