package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// PatientService wraps the patient store with validation, event publication,
// and FHIR bundle import/export.
type PatientService struct {
	patients repositories.PatientRepository
	eventBus providers.EventBus
}

// NewPatientService creates a patient service. eventBus may be nil.
func NewPatientService(patients repositories.PatientRepository, eventBus providers.EventBus) *PatientService {
	return &PatientService{patients: patients, eventBus: eventBus}
}

// GetPatient fetches one patient record.
func (s *PatientService) GetPatient(ctx context.Context, id string) (*entities.Patient, error) {
	if id == "" {
		return nil, errors.NewValidationError("patient id is required")
	}
	return s.patients.GetByID(ctx, id)
}

// ListPatients lists patients, optionally filtered.
func (s *PatientService) ListPatients(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	return s.patients.List(ctx, filter)
}

// SearchPatients scans names, NHS numbers, and condition displays.
func (s *PatientService) SearchPatients(ctx context.Context, query string) ([]*entities.Patient, error) {
	return s.patients.Search(ctx, query)
}

// CreatePatient validates and stores a new patient record.
func (s *PatientService) CreatePatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error) {
	if err := validatePatient(patient); err != nil {
		return nil, err
	}
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	s.publish(ctx, entities.EventPatientCreated, patient)
	return s.patients.GetByID(ctx, patient.ID)
}

// UpdatePatient replaces an existing patient record.
func (s *PatientService) UpdatePatient(ctx context.Context, patient *entities.Patient) (*entities.Patient, error) {
	if patient.ID == "" {
		return nil, errors.NewValidationError("patient id is required")
	}
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	s.publish(ctx, entities.EventPatientUpdated, patient)
	return s.patients.GetByID(ctx, patient.ID)
}

// DeletePatient removes a patient record.
func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewValidationError("patient id is required")
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, entities.EventPatientDeleted, patient)
	return nil
}

// ExportFHIR renders a patient record as a FHIR bundle.
func (s *PatientService) ExportFHIR(ctx context.Context, id string) (*entities.FHIRBundle, error) {
	patient, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	return patientToBundle(patient), nil
}

// ImportFHIR creates a patient record from a FHIR bundle. The bundle must
// contain exactly one Patient resource.
func (s *PatientService) ImportFHIR(ctx context.Context, bundle *entities.FHIRBundle) (*entities.Patient, error) {
	patient, err := bundleToPatient(bundle)
	if err != nil {
		return nil, err
	}
	return s.CreatePatient(ctx, patient)
}

func validatePatient(patient *entities.Patient) error {
	if patient == nil {
		return errors.NewValidationError("patient body is required")
	}
	if patient.GivenName == "" && patient.FamilyName == "" {
		return errors.NewValidationError("patient name is required")
	}
	return nil
}

func (s *PatientService) publish(ctx context.Context, eventType entities.RecordEventType, patient *entities.Patient) {
	if s.eventBus == nil {
		return
	}
	event := &entities.RecordEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		ResourceID: patient.ID,
		Summary:    fmt.Sprintf("%s: %s", eventType, patient.FullName()),
		Timestamp:  time.Now(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelRecordUpdates, event); err != nil {
		log.Warn().Err(err).Str("patient_id", patient.ID).Msg("Failed to publish patient event")
	}
}
