package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/entities"
)

func newPatientMux(t *testing.T) *http.ServeMux {
	t.Helper()

	patients, err := store.NewPatientStore(t.TempDir() + "/patients.json")
	require.NoError(t, err)
	handler := NewPatientHandler(services.NewPatientService(patients, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/patients", handler.ListPatients)
	mux.HandleFunc("POST /api/patients", handler.CreatePatient)
	mux.HandleFunc("GET /api/patients/search", handler.SearchPatients)
	mux.HandleFunc("POST /api/patients/fhir", handler.ImportFHIR)
	mux.HandleFunc("GET /api/patients/{id}", handler.GetPatient)
	mux.HandleFunc("PUT /api/patients/{id}", handler.UpdatePatient)
	mux.HandleFunc("DELETE /api/patients/{id}", handler.DeletePatient)
	mux.HandleFunc("GET /api/patients/{id}/fhir", handler.ExportFHIR)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(method, path, reader))
	return recorder
}

func TestPatientCRUD(t *testing.T) {
	mux := newPatientMux(t)

	recorder := doJSON(mux, http.MethodPost, "/api/patients", `{"given_name": "Ada", "family_name": "Lovelace", "nhs_number": "9434765919"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created entities.Patient
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	recorder = doJSON(mux, http.MethodGet, "/api/patients/"+created.ID, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(mux, http.MethodPut, "/api/patients/"+created.ID, `{"given_name": "Ada", "family_name": "King", "nhs_number": "9434765919"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "King")

	recorder = doJSON(mux, http.MethodDelete, "/api/patients/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(mux, http.MethodGet, "/api/patients/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreatePatient_Invalid(t *testing.T) {
	mux := newPatientMux(t)

	recorder := doJSON(mux, http.MethodPost, "/api/patients", `{"gender": "female"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchPatients(t *testing.T) {
	mux := newPatientMux(t)

	recorder := doJSON(mux, http.MethodPost, "/api/patients", `{"given_name": "Grace", "family_name": "Hopper"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(mux, http.MethodGet, "/api/patients/search?q=grace", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Hopper")

	recorder = doJSON(mux, http.MethodGet, "/api/patients/search", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestFHIRExportImport(t *testing.T) {
	mux := newPatientMux(t)

	recorder := doJSON(mux, http.MethodPost, "/api/patients", `{"given_name": "Ada", "family_name": "Lovelace", "conditions": [{"display": "Asthma"}]}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created entities.Patient
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))

	recorder = doJSON(mux, http.MethodGet, "/api/patients/"+created.ID+"/fhir", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var bundle entities.FHIRBundle
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &bundle))
	assert.Equal(t, "Bundle", bundle.ResourceType)
	require.NotEmpty(t, bundle.Entry)

	// Re-import under a fresh identity.
	bundle.Entry[0].Resource.ID = ""
	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	recorder = doJSON(mux, http.MethodPost, "/api/patients/fhir", string(raw))
	require.Equal(t, http.StatusCreated, recorder.Code)

	var imported entities.Patient
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &imported))
	assert.NotEqual(t, created.ID, imported.ID)
	assert.Equal(t, "Lovelace", imported.FamilyName)
	require.Len(t, imported.Conditions, 1)
}
