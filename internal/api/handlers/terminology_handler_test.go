package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// staticTerminology returns fixed answers for handler tests.
type staticTerminology struct{}

func (staticTerminology) Lookup(ctx context.Context, system, code string) (*entities.LookupResult, error) {
	return &entities.LookupResult{
		Concept: entities.CodedConcept{System: system, Code: code, Display: "Asthma", Source: entities.ConceptSourceServer},
	}, nil
}

func (staticTerminology) ValidateCode(ctx context.Context, system, code, display string) (*entities.ValidationResult, error) {
	return &entities.ValidationResult{Valid: true, Display: "Asthma", Source: entities.ConceptSourceServer}, nil
}

func (staticTerminology) Expand(ctx context.Context, valueSet, filter string, count int) (*entities.ExpansionResult, error) {
	return &entities.ExpansionResult{ValueSet: valueSet, Total: 1, Concepts: []entities.CodedConcept{
		{System: entities.SystemSNOMED, Code: "195967001", Display: "Asthma"},
	}, Source: entities.ConceptSourceServer}, nil
}

func (staticTerminology) Translate(ctx context.Context, sourceSystem, code, targetSystem string) (*entities.TranslationResult, error) {
	return &entities.TranslationResult{Matched: true, Targets: []entities.CodedConcept{
		{System: targetSystem, Code: "J45", Display: "Asthma"},
	}, Source: entities.ConceptSourceServer}, nil
}

func newTerminologyMux() *http.ServeMux {
	handler := NewTerminologyHandler(services.NewTerminologyService(staticTerminology{}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/terminology/lookup", handler.Lookup)
	mux.HandleFunc("GET /api/terminology/validate", handler.Validate)
	mux.HandleFunc("GET /api/terminology/expand", handler.Expand)
	mux.HandleFunc("GET /api/terminology/translate", handler.Translate)
	return mux
}

func TestTerminologyLookup(t *testing.T) {
	mux := newTerminologyMux()

	recorder := doJSON(mux, http.MethodGet, "/api/terminology/lookup?system=snomed&code=195967001", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Asthma")
}

func TestTerminologyLookup_MissingParams(t *testing.T) {
	mux := newTerminologyMux()

	recorder := doJSON(mux, http.MethodGet, "/api/terminology/lookup?system=snomed", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestTerminologyValidate(t *testing.T) {
	mux := newTerminologyMux()

	recorder := doJSON(mux, http.MethodGet, "/api/terminology/validate?system=icd10&code=J45", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"valid":true`)
}

func TestTerminologyExpand(t *testing.T) {
	mux := newTerminologyMux()

	recorder := doJSON(mux, http.MethodGet, "/api/terminology/expand?url=snomed&filter=asthma&count=5", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "195967001")
}

func TestTerminologyTranslate(t *testing.T) {
	mux := newTerminologyMux()

	recorder := doJSON(mux, http.MethodGet, "/api/terminology/translate?system=snomed&code=195967001&target=icd10", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "J45")
}
