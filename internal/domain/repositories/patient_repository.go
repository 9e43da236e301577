package repositories

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// PatientFilter narrows List results. Zero values mean "no constraint".
type PatientFilter struct {
	Name      string
	NHSNumber string
	Limit     int
	Offset    int
}

// PatientRepository defines the interface for patient record operations.
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Patient, error)
	List(ctx context.Context, filter PatientFilter) ([]*entities.Patient, error)
	Search(ctx context.Context, query string) ([]*entities.Patient, error)
	Create(ctx context.Context, patient *entities.Patient) error
	Update(ctx context.Context, patient *entities.Patient) error
	Delete(ctx context.Context, id string) error
}
