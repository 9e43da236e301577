package entities

// FHIR bundle types used as a data shape for import/export. This is field
// copying against a small subset of FHIR R4, not a conformant implementation.

// FHIRBundle groups clinical resource entries.
type FHIRBundle struct {
	ResourceType string      `json:"resourceType"`
	Type         string      `json:"type"`
	Entry        []FHIREntry `json:"entry"`
}

// FHIREntry wraps one resource in a bundle.
type FHIREntry struct {
	Resource FHIRResource `json:"resource"`
}

// FHIRResource is a loose superset of the resource fields this prototype
// copies. Unused fields stay zero and are omitted on marshal.
type FHIRResource struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Identifier   []FHIRIdentifier `json:"identifier,omitempty"`
	Name         []FHIRHumanName  `json:"name,omitempty"`
	Gender       string           `json:"gender,omitempty"`
	BirthDate    string           `json:"birthDate,omitempty"`
	Address      []FHIRAddress    `json:"address,omitempty"`
	Code         *FHIRCodeable    `json:"code,omitempty"`
	Status       string           `json:"status,omitempty"`

	// Condition / MedicationStatement
	ClinicalStatus    *FHIRCodeable `json:"clinicalStatus,omitempty"`
	MedicationCodeable *FHIRCodeable `json:"medicationCodeableConcept,omitempty"`

	// Observation
	ValueQuantity *FHIRQuantity `json:"valueQuantity,omitempty"`
}

// FHIRIdentifier carries a system-scoped identifier such as an NHS number.
type FHIRIdentifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// FHIRHumanName splits a name into family and given parts.
type FHIRHumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// FHIRAddress mirrors the subset of address fields the store keeps.
type FHIRAddress struct {
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// FHIRCodeable is a codeable concept with optional text.
type FHIRCodeable struct {
	Coding []FHIRCoding `json:"coding,omitempty"`
	Text   string       `json:"text,omitempty"`
}

// FHIRCoding is one coding within a codeable concept.
type FHIRCoding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// FHIRQuantity is a value with a unit.
type FHIRQuantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// NHSNumberSystem is the identifier system for NHS numbers.
const NHSNumberSystem = "https://fhir.nhs.uk/Id/nhs-number"
