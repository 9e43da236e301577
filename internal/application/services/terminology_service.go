package services

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// systemAliases lets API clients pass short names instead of full system URIs.
var systemAliases = map[string]string{
	"snomed": entities.SystemSNOMED,
	"icd10":  entities.SystemICD10,
	"icd-10": entities.SystemICD10,
	"dmd":    entities.SystemDMD,
	"dm+d":   entities.SystemDMD,
}

// TerminologyService fronts the terminology provider for the REST surface,
// resolving system aliases before delegating.
type TerminologyService struct {
	provider providers.TerminologyProvider
}

// NewTerminologyService creates a terminology service.
func NewTerminologyService(provider providers.TerminologyProvider) *TerminologyService {
	return &TerminologyService{provider: provider}
}

func resolveSystem(system string) string {
	if canonical, ok := systemAliases[system]; ok {
		return canonical
	}
	return system
}

// Lookup resolves a code to its display and designations.
func (s *TerminologyService) Lookup(ctx context.Context, system, code string) (*entities.LookupResult, error) {
	if system == "" || code == "" {
		return nil, errors.NewValidationError("system and code query parameters are required")
	}
	return s.provider.Lookup(ctx, resolveSystem(system), code)
}

// ValidateCode checks a code against a code system.
func (s *TerminologyService) ValidateCode(ctx context.Context, system, code, display string) (*entities.ValidationResult, error) {
	if system == "" || code == "" {
		return nil, errors.NewValidationError("system and code query parameters are required")
	}
	return s.provider.ValidateCode(ctx, resolveSystem(system), code, display)
}

// Expand expands a value set with an optional text filter.
func (s *TerminologyService) Expand(ctx context.Context, valueSet, filter string, count int) (*entities.ExpansionResult, error) {
	if valueSet == "" {
		return nil, errors.NewValidationError("url query parameter is required")
	}
	return s.provider.Expand(ctx, resolveSystem(valueSet), filter, count)
}

// Translate maps a code between systems.
func (s *TerminologyService) Translate(ctx context.Context, sourceSystem, code, targetSystem string) (*entities.TranslationResult, error) {
	if sourceSystem == "" || code == "" || targetSystem == "" {
		return nil, errors.NewValidationError("system, code, and target query parameters are required")
	}
	return s.provider.Translate(ctx, resolveSystem(sourceSystem), code, resolveSystem(targetSystem))
}
