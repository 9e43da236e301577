package entities

import "time"

// Patient is a denormalized mock patient record. The whole document is
// mutated in place and rewritten wholesale to disk by the store.
type Patient struct {
	ID           string        `json:"id"`
	NHSNumber    string        `json:"nhs_number"`
	GivenName    string        `json:"given_name"`
	FamilyName   string        `json:"family_name"`
	DateOfBirth  string        `json:"date_of_birth"`
	Gender       string        `json:"gender"`
	Address      Address       `json:"address"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	Conditions   []Condition   `json:"conditions"`
	Medications  []Medication  `json:"medications"`
	Allergies    []Allergy     `json:"allergies"`
	Encounters   []Encounter   `json:"encounters"`
	Observations []Observation `json:"observations"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Address holds patient contact address fields.
type Address struct {
	Line     string `json:"line"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Condition is a diagnosed condition, optionally coded.
type Condition struct {
	Code      string `json:"code,omitempty"`
	System    string `json:"system,omitempty"`
	Display   string `json:"display"`
	OnsetDate string `json:"onset_date,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Medication is an active or historical prescription entry.
type Medication struct {
	Code      string `json:"code,omitempty"`
	System    string `json:"system,omitempty"`
	Display   string `json:"display"`
	Dosage    string `json:"dosage,omitempty"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"start_date,omitempty"`
}

// Allergy records an allergy or intolerance.
type Allergy struct {
	Substance string `json:"substance"`
	Reaction  string `json:"reaction,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

// Encounter is a past consultation or admission.
type Encounter struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Observation is a single measurement such as blood pressure or weight.
type Observation struct {
	Code    string  `json:"code,omitempty"`
	Display string  `json:"display"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	TakenAt string  `json:"taken_at,omitempty"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	if p.GivenName == "" {
		return p.FamilyName
	}
	if p.FamilyName == "" {
		return p.GivenName
	}
	return p.GivenName + " " + p.FamilyName
}
