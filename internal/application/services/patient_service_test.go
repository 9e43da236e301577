package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/domain/entities"
)

func newTestPatientService(t *testing.T, bus *capturingBus) *PatientService {
	t.Helper()
	patients, err := store.NewPatientStore(t.TempDir() + "/patients.json")
	require.NoError(t, err)
	if bus == nil {
		return NewPatientService(patients, nil)
	}
	return NewPatientService(patients, bus)
}

func TestCreatePatient_AssignsIDAndPublishes(t *testing.T) {
	bus := &capturingBus{}
	service := newTestPatientService(t, bus)

	created, err := service.CreatePatient(context.Background(), &entities.Patient{
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	require.Len(t, bus.published, 1)
	assert.Equal(t, entities.EventPatientCreated, bus.published[0].EventType)
	assert.Equal(t, created.ID, bus.published[0].ResourceID)
}

func TestCreatePatient_RequiresName(t *testing.T) {
	service := newTestPatientService(t, nil)

	_, err := service.CreatePatient(context.Background(), &entities.Patient{})
	require.Error(t, err)
}

func TestDeletePatient_PublishesWithName(t *testing.T) {
	bus := &capturingBus{}
	service := newTestPatientService(t, bus)

	created, err := service.CreatePatient(context.Background(), &entities.Patient{GivenName: "Ada"})
	require.NoError(t, err)

	require.NoError(t, service.DeletePatient(context.Background(), created.ID))

	require.Len(t, bus.published, 2)
	assert.Equal(t, entities.EventPatientDeleted, bus.published[1].EventType)
	assert.Contains(t, bus.published[1].Summary, "Ada")
}

func TestImportFHIR_CreatesPatient(t *testing.T) {
	service := newTestPatientService(t, nil)

	bundle := patientToBundle(samplePatient())
	// Imported records get a fresh ID from the service.
	bundle.Entry[0].Resource.ID = ""

	created, err := service.ImportFHIR(context.Background(), bundle)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lovelace", created.FamilyName)
	require.Len(t, created.Conditions, 1)
}

func TestExportFHIR_UnknownPatient(t *testing.T) {
	service := newTestPatientService(t, nil)

	_, err := service.ExportFHIR(context.Background(), "missing")
	require.Error(t, err)
}
