package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

// PatientStore is a JSON-file document store. The whole file is loaded into
// memory at construction and rewritten wholesale on every mutation. A
// store-level RWMutex serializes writers so concurrent updates cannot
// silently overwrite each other.
type PatientStore struct {
	path     string
	mu       sync.RWMutex
	patients []*entities.Patient
}

type patientFile struct {
	Patients []*entities.Patient `json:"patients"`
}

// NewPatientStore loads the store from path. A missing file yields an empty
// store; the file is created on first save.
func NewPatientStore(path string) (*PatientStore, error) {
	s := &PatientStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PatientStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.patients = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read patient store: %w", err)
	}

	var file patientFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse patient store %s: %w", s.path, err)
	}
	s.patients = file.Patients
	return nil
}

// save writes the full document set to a temp file and renames it into place
// so readers never observe a half-written file. Callers must hold the write lock.
func (s *PatientStore) save() error {
	data, err := json.MarshalIndent(patientFile{Patients: s.patients}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal patient store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write patient store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace patient store: %w", err)
	}
	return nil
}

// GetByID returns the patient with the given id.
func (s *PatientStore) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patients {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("patient not found")
}

// List returns patients matching the filter, in file order.
func (s *PatientStore) List(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Patient
	for _, p := range s.patients {
		if filter.NHSNumber != "" && p.NHSNumber != filter.NHSNumber {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.FullName()), strings.ToLower(filter.Name)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Search scans names, NHS numbers, and condition displays for the query.
func (s *PatientStore) Search(ctx context.Context, query string) ([]*entities.Patient, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Patient
	for _, p := range s.patients {
		if s.matches(p, q) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *PatientStore) matches(p *entities.Patient, q string) bool {
	if strings.Contains(strings.ToLower(p.FullName()), q) {
		return true
	}
	if strings.Contains(p.NHSNumber, q) {
		return true
	}
	for _, c := range p.Conditions {
		if strings.Contains(strings.ToLower(c.Display), q) {
			return true
		}
	}
	return false
}

// Create appends a new patient and persists the file.
func (s *PatientStore) Create(ctx context.Context, patient *entities.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patients {
		if p.ID == patient.ID {
			return apperrors.NewConflictError("patient already exists")
		}
	}

	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	cp := *patient
	s.patients = append(s.patients, &cp)
	if err := s.save(); err != nil {
		s.patients = s.patients[:len(s.patients)-1]
		return apperrors.NewInternalError("failed to persist patient", err)
	}
	return nil
}

// Update replaces an existing patient document and persists the file.
func (s *PatientStore) Update(ctx context.Context, patient *entities.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.patients {
		if p.ID == patient.ID {
			patient.CreatedAt = p.CreatedAt
			patient.UpdatedAt = time.Now().UTC()
			cp := *patient
			prev := s.patients[i]
			s.patients[i] = &cp
			if err := s.save(); err != nil {
				s.patients[i] = prev
				return apperrors.NewInternalError("failed to persist patient", err)
			}
			return nil
		}
	}
	return apperrors.NewNotFoundError("patient not found")
}

// Delete removes a patient and persists the file.
func (s *PatientStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.patients {
		if p.ID == id {
			prev := s.patients
			s.patients = append(append([]*entities.Patient{}, s.patients[:i]...), s.patients[i+1:]...)
			if err := s.save(); err != nil {
				s.patients = prev
				return apperrors.NewInternalError("failed to persist patient store", err)
			}
			return nil
		}
	}
	return apperrors.NewNotFoundError("patient not found")
}

// Count returns the number of stored patients.
func (s *PatientStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients)
}
