package entities

// Clinical code systems the terminology client understands.
const (
	SystemSNOMED = "http://snomed.info/sct"
	SystemICD10  = "http://hl7.org/fhir/sid/icd-10"
	SystemDMD    = "https://dmd.nhs.uk"
)

// Concept sources, recorded on every terminology response so callers can tell
// a live answer from a degraded one.
const (
	ConceptSourceServer   = "server"
	ConceptSourceCache    = "cache"
	ConceptSourceFallback = "fallback"
)

// CodedConcept is a resolved clinical code.
type CodedConcept struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
	Source  string `json:"source,omitempty"`
}

// LookupResult is the outcome of a $lookup operation.
type LookupResult struct {
	Concept      CodedConcept `json:"concept"`
	Designations []string     `json:"designations,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// ValidationResult is the outcome of a $validate-code operation.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Display string `json:"display,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ExpansionResult is the outcome of a $expand operation.
type ExpansionResult struct {
	ValueSet string         `json:"value_set"`
	Total    int            `json:"total"`
	Concepts []CodedConcept `json:"concepts"`
	Source   string         `json:"source,omitempty"`
}

// TranslationResult is the outcome of a $translate operation.
type TranslationResult struct {
	Matched bool           `json:"matched"`
	Targets []CodedConcept `json:"targets,omitempty"`
	Source  string         `json:"source,omitempty"`
}
