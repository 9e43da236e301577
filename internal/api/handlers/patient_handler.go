package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
)

// PatientHandler handles patient record HTTP requests.
type PatientHandler struct {
	patientService *services.PatientService
}

// NewPatientHandler creates a new patient handler.
func NewPatientHandler(patientService *services.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.patientService.GetPatient(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, patient)
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.PatientFilter{
		Name:      query.Get("name"),
		NHSNumber: query.Get("nhs_number"),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	patients, err := h.patientService.ListPatients(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// SearchPatients handles GET /api/patients/search?q=
func (h *PatientHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientService.SearchPatients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// CreatePatient handles POST /api/patients
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.patientService.CreatePatient(r.Context(), &patient)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// UpdatePatient handles PUT /api/patients/{id}
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patient.ID = r.PathValue("id")

	updated, err := h.patientService.UpdatePatient(r.Context(), &patient)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.patientService.DeletePatient(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportFHIR handles GET /api/patients/{id}/fhir
func (h *PatientHandler) ExportFHIR(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.patientService.ExportFHIR(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bundle)
}

// ImportFHIR handles POST /api/patients/fhir
func (h *PatientHandler) ImportFHIR(w http.ResponseWriter, r *http.Request) {
	var bundle entities.FHIRBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.patientService.ImportFHIR(r.Context(), &bundle)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}
