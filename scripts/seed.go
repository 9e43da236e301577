package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("RESET_STORES") == "true" {
		log.Println("RESET_STORES=true detected, removing store files before seeding")
		os.Remove(cfg.Store.PatientsFile)
		os.Remove(cfg.Store.PromptsFile)
	}

	patientStore, err := store.NewPatientStore(cfg.Store.PatientsFile)
	if err != nil {
		log.Fatalf("Failed to open patient store: %v", err)
	}
	promptStore, err := store.NewPromptStore(cfg.Store.PromptsFile)
	if err != nil {
		log.Fatalf("Failed to open prompt store: %v", err)
	}

	ctx := context.Background()

	// 1. Seed mock patients
	patients := []entities.Patient{
		{
			ID:          uuid.New().String(),
			NHSNumber:   "943 476 5919",
			GivenName:   "Margaret",
			FamilyName:  "Holloway",
			DateOfBirth: "1951-03-14",
			Gender:      "female",
			Address:     entities.Address{Line: "12 Bramley Close", City: "Leeds", Postcode: "LS6 3QT", Country: "GB"},
			Phone:       "0113 496 0241",
			Email:       "m.holloway@example.org",
			Conditions: []entities.Condition{
				{Code: "44054006", System: "http://snomed.info/sct", Display: "Type 2 diabetes mellitus", OnsetDate: "2009-06-01", Status: "active"},
				{Code: "38341003", System: "http://snomed.info/sct", Display: "Hypertensive disorder", OnsetDate: "2012-11-20", Status: "active"},
			},
			Medications: []entities.Medication{
				{Code: "109081006", System: "https://dmd.nhs.uk", Display: "Metformin 500mg tablets", Dosage: "500mg twice daily", Status: "active", StartDate: "2009-06-15"},
				{Code: "318856006", System: "https://dmd.nhs.uk", Display: "Ramipril 5mg capsules", Dosage: "5mg once daily", Status: "active", StartDate: "2012-12-01"},
			},
			Allergies: []entities.Allergy{
				{Substance: "Penicillin", Reaction: "Rash", Severity: "moderate"},
			},
			Encounters: []entities.Encounter{
				{ID: uuid.New().String(), Type: "GP consultation", Date: "2025-11-02", Reason: "Diabetic annual review", Notes: "HbA1c stable, continue current regimen."},
			},
			Observations: []entities.Observation{
				{Code: "75367002", Display: "Blood pressure", Value: 142, Unit: "mmHg systolic", TakenAt: "2025-11-02"},
				{Code: "43396009", Display: "HbA1c", Value: 51, Unit: "mmol/mol", TakenAt: "2025-11-02"},
			},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		{
			ID:          uuid.New().String(),
			NHSNumber:   "485 777 3456",
			GivenName:   "Daniel",
			FamilyName:  "Okafor",
			DateOfBirth: "1988-09-27",
			Gender:      "male",
			Address:     entities.Address{Line: "3 Willow Court", City: "Manchester", Postcode: "M14 5WB", Country: "GB"},
			Phone:       "0161 496 0178",
			Email:       "d.okafor@example.org",
			Conditions: []entities.Condition{
				{Code: "195967001", System: "http://snomed.info/sct", Display: "Asthma", OnsetDate: "1996-04-10", Status: "active"},
			},
			Medications: []entities.Medication{
				{Code: "39113611000001102", System: "https://dmd.nhs.uk", Display: "Salbutamol 100micrograms/dose inhaler", Dosage: "Two puffs as required", Status: "active", StartDate: "1996-04-10"},
			},
			Encounters: []entities.Encounter{
				{ID: uuid.New().String(), Type: "A&E attendance", Date: "2024-01-18", Reason: "Acute asthma exacerbation", Notes: "Nebulised, discharged same day with rescue steroids."},
			},
			Observations: []entities.Observation{
				{Display: "Peak expiratory flow", Value: 510, Unit: "L/min", TakenAt: "2025-08-12"},
			},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		{
			ID:          uuid.New().String(),
			NHSNumber:   "624 329 8804",
			GivenName:   "Priya",
			FamilyName:  "Sharma",
			DateOfBirth: "1972-12-05",
			Gender:      "female",
			Address:     entities.Address{Line: "88 Hartfield Road", City: "London", Postcode: "SW19 3TJ", Country: "GB"},
			Phone:       "020 7946 0933",
			Email:       "p.sharma@example.org",
			Conditions: []entities.Condition{
				{Code: "35489007", System: "http://snomed.info/sct", Display: "Depressive disorder", OnsetDate: "2019-02-11", Status: "active"},
				{Code: "J45", System: "http://hl7.org/fhir/sid/icd-10", Display: "Asthma", OnsetDate: "1985-01-01", Status: "inactive"},
			},
			Medications: []entities.Medication{
				{Display: "Sertraline 50mg tablets", Dosage: "50mg once daily", Status: "active", StartDate: "2019-03-01"},
			},
			Allergies: []entities.Allergy{
				{Substance: "Latex", Reaction: "Contact dermatitis", Severity: "mild"},
			},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}

	for i := range patients {
		if err := patientStore.Create(ctx, &patients[i]); err != nil {
			log.Printf("Failed to create patient %s: %v", patients[i].FullName(), err)
		}
	}
	log.Printf("Seeded %d patients", len(patients))

	// 2. Seed one active prompt per agent so templates are editable at
	// runtime rather than baked into the binary. Placeholder names must
	// match the pipeline's prompt vars.
	prompts := []entities.Prompt{
		{
			Name:     "History summariser",
			Category: entities.AgentHistory,
			Template: "You are a clinical history assistant reviewing a consultation.\n\nPatient record:\n{patient_summary}\n\nConversation so far:\n{history}\n\nLatest patient message:\n{message}\n\nSummarise the relevant history and the presenting complaint in a short paragraph.",
			Active:   true,
		},
		{
			Name:     "Triage assessor",
			Category: entities.AgentTriage,
			Template: "You are a triage assistant assessing urgency.\n\nPatient record:\n{patient_summary}\n\nFindings so far:\n{prior_results}\n\nLatest patient message:\n{message}\n\nRespond with JSON only: {\"urgency\": \"routine|urgent|emergency\", \"rationale\": \"...\"}",
			Active:   true,
		},
		{
			Name:     "Clinical coder",
			Category: entities.AgentCoding,
			Template: "You are a clinical coding assistant. Extract the distinct clinical concepts from the notes below.\n\n{prior_results}\n\nLatest patient message:\n{message}\n\nRespond with a JSON array of search terms only, most specific first.",
			Active:   true,
		},
		{
			Name:     "Response synthesiser",
			Category: entities.AgentSynthesis,
			Template: "You are a clinical assistant drafting a response to the patient.\n\nPatient record:\n{patient_summary}\n\nAssessment notes from colleagues:\n{prior_results}\n\nConversation so far:\n{history}\n\nLatest patient message:\n{message}\n\nWrite a clear, empathetic reply. Do not diagnose definitively; explain next steps.",
			Active:   true,
		},
		{
			Name:     "Compliance reviewer",
			Category: entities.AgentCompliance,
			Template: "You are a clinical safety reviewer.\n\nDraft reply to the patient:\n{draft}\n\nCheck for unsafe advice, missing safety netting, and definitive diagnoses. Respond with JSON only: {\"status\": \"ok|concerns\", \"notes\": \"...\"}",
			Active:   true,
		},
	}

	for i := range prompts {
		prompts[i].ID = uuid.New().String()
		if err := promptStore.Create(ctx, &prompts[i]); err != nil {
			log.Printf("Failed to create prompt %s: %v", prompts[i].Name, err)
		}
	}
	log.Printf("Seeded %d prompts", len(prompts))

	log.Println("Seeding complete")
}
