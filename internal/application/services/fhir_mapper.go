package services

import (
	"strings"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// patientToBundle flattens a patient record into a FHIR collection bundle:
// one Patient resource followed by Condition, MedicationStatement,
// AllergyIntolerance, and Observation entries.
func patientToBundle(patient *entities.Patient) *entities.FHIRBundle {
	bundle := &entities.FHIRBundle{
		ResourceType: "Bundle",
		Type:         "collection",
	}

	resource := entities.FHIRResource{
		ResourceType: "Patient",
		ID:           patient.ID,
		Gender:       patient.Gender,
		BirthDate:    patient.DateOfBirth,
		Name: []entities.FHIRHumanName{{
			Family: patient.FamilyName,
			Given:  []string{patient.GivenName},
		}},
	}
	if patient.NHSNumber != "" {
		resource.Identifier = []entities.FHIRIdentifier{{
			System: entities.NHSNumberSystem,
			Value:  patient.NHSNumber,
		}}
	}
	if patient.Address != (entities.Address{}) {
		resource.Address = []entities.FHIRAddress{{
			Line:       []string{patient.Address.Line},
			City:       patient.Address.City,
			PostalCode: patient.Address.Postcode,
			Country:    patient.Address.Country,
		}}
	}
	bundle.Entry = append(bundle.Entry, entities.FHIREntry{Resource: resource})

	for _, condition := range patient.Conditions {
		bundle.Entry = append(bundle.Entry, entities.FHIREntry{Resource: entities.FHIRResource{
			ResourceType: "Condition",
			Code:         codeable(condition.System, condition.Code, condition.Display),
			ClinicalStatus: &entities.FHIRCodeable{
				Text: condition.Status,
			},
		}})
	}
	for _, medication := range patient.Medications {
		bundle.Entry = append(bundle.Entry, entities.FHIREntry{Resource: entities.FHIRResource{
			ResourceType:       "MedicationStatement",
			Status:             medication.Status,
			MedicationCodeable: codeable(medication.System, medication.Code, medication.Display),
		}})
	}
	for _, allergy := range patient.Allergies {
		bundle.Entry = append(bundle.Entry, entities.FHIREntry{Resource: entities.FHIRResource{
			ResourceType: "AllergyIntolerance",
			Code:         codeable("", "", allergy.Substance),
		}})
	}
	for _, observation := range patient.Observations {
		bundle.Entry = append(bundle.Entry, entities.FHIREntry{Resource: entities.FHIRResource{
			ResourceType: "Observation",
			Code:         codeable("", observation.Code, observation.Display),
			ValueQuantity: &entities.FHIRQuantity{
				Value: observation.Value,
				Unit:  observation.Unit,
			},
		}})
	}

	return bundle
}

// bundleToPatient extracts a patient record from a FHIR bundle. Exactly one
// Patient resource is required; clinical entries are optional.
func bundleToPatient(bundle *entities.FHIRBundle) (*entities.Patient, error) {
	if bundle == nil || len(bundle.Entry) == 0 {
		return nil, errors.NewValidationError("bundle has no entries")
	}

	var patient *entities.Patient
	for _, entry := range bundle.Entry {
		if entry.Resource.ResourceType != "Patient" {
			continue
		}
		if patient != nil {
			return nil, errors.NewValidationError("bundle contains more than one Patient resource")
		}
		resource := entry.Resource
		patient = &entities.Patient{
			ID:          resource.ID,
			Gender:      resource.Gender,
			DateOfBirth: resource.BirthDate,
		}
		for _, identifier := range resource.Identifier {
			if identifier.System == entities.NHSNumberSystem {
				patient.NHSNumber = identifier.Value
			}
		}
		if len(resource.Name) > 0 {
			patient.FamilyName = resource.Name[0].Family
			if len(resource.Name[0].Given) > 0 {
				patient.GivenName = resource.Name[0].Given[0]
			}
		}
		if len(resource.Address) > 0 {
			address := resource.Address[0]
			patient.Address = entities.Address{
				Line:     strings.Join(address.Line, ", "),
				City:     address.City,
				Postcode: address.PostalCode,
				Country:  address.Country,
			}
		}
	}
	if patient == nil {
		return nil, errors.NewValidationError("bundle contains no Patient resource")
	}

	for _, entry := range bundle.Entry {
		resource := entry.Resource
		switch resource.ResourceType {
		case "Condition":
			system, code, display := fromCodeable(resource.Code)
			status := ""
			if resource.ClinicalStatus != nil {
				status = resource.ClinicalStatus.Text
			}
			patient.Conditions = append(patient.Conditions, entities.Condition{
				System:  system,
				Code:    code,
				Display: display,
				Status:  status,
			})
		case "MedicationStatement":
			system, code, display := fromCodeable(resource.MedicationCodeable)
			patient.Medications = append(patient.Medications, entities.Medication{
				System:  system,
				Code:    code,
				Display: display,
				Status:  resource.Status,
			})
		case "AllergyIntolerance":
			_, _, display := fromCodeable(resource.Code)
			if display != "" {
				patient.Allergies = append(patient.Allergies, entities.Allergy{Substance: display})
			}
		case "Observation":
			_, code, display := fromCodeable(resource.Code)
			observation := entities.Observation{Code: code, Display: display}
			if resource.ValueQuantity != nil {
				observation.Value = resource.ValueQuantity.Value
				observation.Unit = resource.ValueQuantity.Unit
			}
			patient.Observations = append(patient.Observations, observation)
		}
	}

	return patient, nil
}

func codeable(system, code, display string) *entities.FHIRCodeable {
	concept := &entities.FHIRCodeable{Text: display}
	if code != "" {
		concept.Coding = []entities.FHIRCoding{{System: system, Code: code, Display: display}}
	}
	return concept
}

func fromCodeable(concept *entities.FHIRCodeable) (system, code, display string) {
	if concept == nil {
		return "", "", ""
	}
	display = concept.Text
	if len(concept.Coding) > 0 {
		system = concept.Coding[0].System
		code = concept.Coding[0].Code
		if display == "" {
			display = concept.Coding[0].Display
		}
	}
	return system, code, display
}
