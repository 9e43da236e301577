package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// recordingTerminology captures the resolved arguments it was called with.
type recordingTerminology struct {
	lastSystem string
	lastTarget string
}

func (r *recordingTerminology) Lookup(ctx context.Context, system, code string) (*entities.LookupResult, error) {
	r.lastSystem = system
	return &entities.LookupResult{}, nil
}

func (r *recordingTerminology) ValidateCode(ctx context.Context, system, code, display string) (*entities.ValidationResult, error) {
	r.lastSystem = system
	return &entities.ValidationResult{}, nil
}

func (r *recordingTerminology) Expand(ctx context.Context, valueSet, filter string, count int) (*entities.ExpansionResult, error) {
	r.lastSystem = valueSet
	return &entities.ExpansionResult{}, nil
}

func (r *recordingTerminology) Translate(ctx context.Context, sourceSystem, code, targetSystem string) (*entities.TranslationResult, error) {
	r.lastSystem = sourceSystem
	r.lastTarget = targetSystem
	return &entities.TranslationResult{}, nil
}

func TestLookup_ResolvesAlias(t *testing.T) {
	provider := &recordingTerminology{}
	service := NewTerminologyService(provider)

	_, err := service.Lookup(context.Background(), "snomed", "195967001")
	require.NoError(t, err)
	assert.Equal(t, entities.SystemSNOMED, provider.lastSystem)
}

func TestLookup_PassesThroughFullURI(t *testing.T) {
	provider := &recordingTerminology{}
	service := NewTerminologyService(provider)

	_, err := service.Lookup(context.Background(), entities.SystemICD10, "I10")
	require.NoError(t, err)
	assert.Equal(t, entities.SystemICD10, provider.lastSystem)
}

func TestTranslate_ResolvesBothAliases(t *testing.T) {
	provider := &recordingTerminology{}
	service := NewTerminologyService(provider)

	_, err := service.Translate(context.Background(), "snomed", "195967001", "icd10")
	require.NoError(t, err)
	assert.Equal(t, entities.SystemSNOMED, provider.lastSystem)
	assert.Equal(t, entities.SystemICD10, provider.lastTarget)
}

func TestLookup_RequiresArguments(t *testing.T) {
	service := NewTerminologyService(&recordingTerminology{})

	_, err := service.Lookup(context.Background(), "", "x")
	require.Error(t, err)
	_, err = service.Expand(context.Background(), "", "", 10)
	require.Error(t, err)
}
