package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
)

// fakeMedicationRepo is an in-memory MedicationRepository for tests
type fakeMedicationRepo struct {
	mu   sync.Mutex
	meds map[string]*models.Medication
}

func newFakeMedicationRepo() *fakeMedicationRepo {
	return &fakeMedicationRepo{meds: make(map[string]*models.Medication)}
}

func (f *fakeMedicationRepo) Create(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	c := *med
	f.meds[med.ID] = &c
	return med, nil
}

func (f *fakeMedicationRepo) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, ok := f.meds[id]
	if !ok {
		return nil, nil
	}
	c := *med
	return &c, nil
}

func (f *fakeMedicationRepo) GetByPatientID(ctx context.Context, patientID string, filters repository.MedicationFilters) ([]*models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Medication
	for _, med := range f.meds {
		if med.PatientID != patientID {
			continue
		}
		if filters.Status != nil && med.Status != *filters.Status {
			continue
		}
		if !filters.IncludeArchived && med.Archived {
			continue
		}
		c := *med
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeMedicationRepo) GetSchedulable(ctx context.Context) ([]*models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var out []*models.Medication
	for _, med := range f.meds {
		if med.Schedulable() && med.NextTrigger != nil && med.NextTrigger.After(now) {
			c := *med
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeMedicationRepo) Update(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meds[med.ID]; !ok {
		return nil, errors.New("not found")
	}
	c := *med
	f.meds[med.ID] = &c
	return med, nil
}

func (f *fakeMedicationRepo) UpdateNextTrigger(ctx context.Context, id string, next *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, ok := f.meds[id]
	if !ok {
		return errors.New("not found")
	}
	med.NextTrigger = next
	return nil
}

func (f *fakeMedicationRepo) UpdateAdherence(ctx context.Context, id string, adherence models.Adherence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, ok := f.meds[id]
	if !ok {
		return errors.New("not found")
	}
	med.Adherence = adherence
	return nil
}

func (f *fakeMedicationRepo) Archive(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	med, ok := f.meds[id]
	if !ok {
		return errors.New("not found")
	}
	med.Archived = true
	med.NextTrigger = nil
	return nil
}

func (f *fakeMedicationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.meds, id)
	return nil
}

// fakePatientRepo is an in-memory PatientRepository for tests
type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[string]*models.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[string]*models.Patient)}
}

func (f *fakePatientRepo) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	c := *patient
	f.patients[patient.ID] = &c
	return patient, nil
}

func (f *fakePatientRepo) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	patient, ok := f.patients[id]
	if !ok {
		return nil, nil
	}
	c := *patient
	return &c, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *patient
	f.patients[patient.ID] = &c
	return patient, nil
}

func (f *fakePatientRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.patients, id)
	return nil
}

func testService(t *testing.T) (*Service, *fakeMedicationRepo, *fakePatientRepo) {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	meds := newFakeMedicationRepo()
	patients := newFakePatientRepo()
	return New(nil, l, patients, meds, DefaultInteractionTable()), meds, patients
}

func TestCreateMedicationRefusedOnInteraction(t *testing.T) {
	svc, meds, _ := testService(t)
	ctx := context.Background()

	_, err := meds.Create(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Warfarin",
		Status:    models.MedicationStatusActive,
	})
	require.NoError(t, err)

	_, err = svc.CreateMedication(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Aspirin",
	}, false)

	var warning *InteractionWarning
	require.ErrorAs(t, err, &warning)
	require.Len(t, warning.Interactions, 1)
	assert.Equal(t, models.SeverityCritical, warning.Interactions[0].Severity)
}

func TestCreateMedicationAllowedWithOverride(t *testing.T) {
	svc, meds, _ := testService(t)
	ctx := context.Background()

	_, err := meds.Create(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Warfarin",
		Status:    models.MedicationStatusActive,
	})
	require.NoError(t, err)

	created, err := svc.CreateMedication(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Aspirin",
	}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestCreateMedicationIgnoresInactiveDrugs(t *testing.T) {
	svc, meds, _ := testService(t)
	ctx := context.Background()

	_, err := meds.Create(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Warfarin",
		Status:    models.MedicationStatusStopped,
	})
	require.NoError(t, err)

	_, err = svc.CreateMedication(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Aspirin",
	}, false)
	require.NoError(t, err)
}

func TestCreateMedicationComputesInitialTrigger(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	created, err := svc.CreateMedication(ctx, &models.Medication{
		PatientID: "pat-1",
		Name:      "Metformin",
		Schedule:  models.Schedule{TimesOfDay: []int{9 * 60, 21 * 60}},
		Reminders: models.ReminderConfig{Enabled: true},
	}, false)
	require.NoError(t, err)
	require.NotNil(t, created.NextTrigger)
	assert.True(t, created.NextTrigger.After(time.Now()))
}

func TestMarkTakenUpdatesStreaks(t *testing.T) {
	svc, meds, _ := testService(t)
	ctx := context.Background()

	created, err := meds.Create(ctx, &models.Medication{PatientID: "pat-1", Name: "Metformin"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.MarkTaken(ctx, created.ID)
		require.NoError(t, err)
	}

	med, err := meds.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, med.Adherence.TotalDoses)
	assert.Equal(t, 3, med.Adherence.TakenDoses)
	assert.Equal(t, 3, med.Adherence.CurrentStreak)
	assert.Equal(t, 3, med.Adherence.LongestStreak)

	_, err = svc.MarkMissed(ctx, created.ID)
	require.NoError(t, err)

	med, err = meds.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, med.Adherence.TotalDoses)
	assert.Equal(t, 1, med.Adherence.MissedDoses)
	assert.Equal(t, 0, med.Adherence.CurrentStreak)
	assert.Equal(t, 3, med.Adherence.LongestStreak)

	_, err = svc.MarkTaken(ctx, created.ID)
	require.NoError(t, err)

	med, err = meds.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, med.Adherence.CurrentStreak)
	assert.Equal(t, 3, med.Adherence.LongestStreak)
	assert.InDelta(t, 0.8, med.Adherence.Rate(), 1e-9)
}

func TestUpdateMedicationClearsTriggerWhenNotSchedulable(t *testing.T) {
	svc, meds, _ := testService(t)
	ctx := context.Background()

	next := time.Now().Add(time.Hour)
	created, err := meds.Create(ctx, &models.Medication{
		PatientID:   "pat-1",
		Name:        "Metformin",
		Status:      models.MedicationStatusActive,
		Schedule:    models.Schedule{TimesOfDay: []int{9 * 60}},
		Reminders:   models.ReminderConfig{Enabled: true},
		NextTrigger: &next,
	})
	require.NoError(t, err)

	created.Status = models.MedicationStatusPaused
	updated, err := svc.UpdateMedication(ctx, created)
	require.NoError(t, err)
	assert.Nil(t, updated.NextTrigger)
}
