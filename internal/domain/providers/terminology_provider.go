package providers

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// TerminologyProvider exposes the subset of FHIR terminology operations the
// pipeline uses against the NHS terminology server.
type TerminologyProvider interface {
	// Lookup resolves a code in a system to its display and designations ($lookup).
	Lookup(ctx context.Context, system, code string) (*entities.LookupResult, error)

	// ValidateCode checks that a code (and optional display) is valid in a system ($validate-code).
	ValidateCode(ctx context.Context, system, code, display string) (*entities.ValidationResult, error)

	// Expand expands a value set, optionally filtered by a text prefix ($expand).
	Expand(ctx context.Context, valueSet, filter string, count int) (*entities.ExpansionResult, error)

	// Translate maps a code from one system to another ($translate).
	Translate(ctx context.Context, sourceSystem, code, targetSystem string) (*entities.TranslationResult, error)
}
