package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

func newTestPatient(id, given, family, nhs string) *entities.Patient {
	return &entities.Patient{
		ID:         id,
		NHSNumber:  nhs,
		GivenName:  given,
		FamilyName: family,
		Conditions: []entities.Condition{
			{Display: "Asthma", Code: "195967001", System: entities.SystemSNOMED},
		},
	}
}

func TestPatientStore_CreateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	p := newTestPatient("p1", "Ada", "Lovelace", "9434765919")
	require.NoError(t, s.Create(context.Background(), p))

	got, err := s.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.FullName())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPatientStore_DuplicateCreateConflicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), newTestPatient("p1", "Ada", "Lovelace", "9434765919")))
	err = s.Create(context.Background(), newTestPatient("p1", "Grace", "Hopper", "9434765870"))
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestPatientStore_UpdatePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	p := newTestPatient("p1", "Ada", "Lovelace", "9434765919")
	require.NoError(t, s.Create(context.Background(), p))

	p.FamilyName = "Byron"
	require.NoError(t, s.Update(context.Background(), p))

	// A fresh store instance reads the same file from disk.
	reloaded, err := store.NewPatientStore(path)
	require.NoError(t, err)

	got, err := reloaded.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Byron", got.FamilyName)
}

func TestPatientStore_UpdateUnknownNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	err = s.Update(context.Background(), newTestPatient("ghost", "No", "One", ""))
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestPatientStore_ListFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), newTestPatient("p1", "Ada", "Lovelace", "9434765919")))
	require.NoError(t, s.Create(context.Background(), newTestPatient("p2", "Grace", "Hopper", "9434765870")))

	byName, err := s.List(context.Background(), repositories.PatientFilter{Name: "grace"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "p2", byName[0].ID)

	byNHS, err := s.List(context.Background(), repositories.PatientFilter{NHSNumber: "9434765919"})
	require.NoError(t, err)
	require.Len(t, byNHS, 1)
	assert.Equal(t, "p1", byNHS[0].ID)

	limited, err := s.List(context.Background(), repositories.PatientFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPatientStore_SearchScansConditions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), newTestPatient("p1", "Ada", "Lovelace", "9434765919")))

	hits, err := s.Search(context.Background(), "asthma")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = s.Search(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
}

func TestPatientStore_DeleteThenGetNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), newTestPatient("p1", "Ada", "Lovelace", "9434765919")))
	require.NoError(t, s.Delete(context.Background(), "p1"))

	_, err = s.GetByID(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestPatientStore_ConcurrentUpdatesSerialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	s, err := store.NewPatientStore(path)
	require.NoError(t, err)

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.Create(context.Background(), newTestPatient(id, "N", id, "")))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := newTestPatient("p2", "Updated", "Name", "")
			_ = s.Update(context.Background(), p)
		}(i)
	}
	wg.Wait()

	reloaded, err := store.NewPatientStore(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Count())
}
