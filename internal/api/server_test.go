package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
	"github.com/dosewise/dosewise/internal/service"
)

type memMedicationRepo struct {
	mu   sync.Mutex
	meds map[string]*models.Medication
}

func (m *memMedicationRepo) Create(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	c := *med
	m.meds[med.ID] = &c
	return med, nil
}

func (m *memMedicationRepo) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.meds[id]
	if !ok {
		return nil, nil
	}
	c := *med
	return &c, nil
}

func (m *memMedicationRepo) GetByPatientID(ctx context.Context, patientID string, filters repository.MedicationFilters) ([]*models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Medication
	for _, med := range m.meds {
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

func (m *memMedicationRepo) GetSchedulable(ctx context.Context) ([]*models.Medication, error) {
	return nil, nil
}

func (m *memMedicationRepo) Update(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *med
	m.meds[med.ID] = &c
	return med, nil
}

func (m *memMedicationRepo) UpdateNextTrigger(ctx context.Context, id string, next *time.Time) error {
	return nil
}

func (m *memMedicationRepo) UpdateAdherence(ctx context.Context, id string, adherence models.Adherence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if med, ok := m.meds[id]; ok {
		med.Adherence = adherence
	}
	return nil
}

func (m *memMedicationRepo) Archive(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if med, ok := m.meds[id]; ok {
		med.Archived = true
	}
	return nil
}

func (m *memMedicationRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meds, id)
	return nil
}

type memPatientRepo struct {
	mu       sync.Mutex
	patients map[string]*models.Patient
}

func (m *memPatientRepo) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	c := *p
	m.patients[p.ID] = &c
	return p, nil
}

func (m *memPatientRepo) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *memPatientRepo) Update(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	m.patients[p.ID] = &c
	return p, nil
}

func (m *memPatientRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patients, id)
	return nil
}

func testServer(t *testing.T) (*Server, *memMedicationRepo) {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	meds := &memMedicationRepo{meds: make(map[string]*models.Medication)}
	patients := &memPatientRepo{patients: make(map[string]*models.Patient)}
	svc := service.New(nil, l, patients, meds, service.DefaultInteractionTable())
	return NewServer(svc, l), meds
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateMedicationInteractionGate(t *testing.T) {
	server, meds := testServer(t)

	_, err := meds.Create(context.Background(), &models.Medication{
		PatientID: "pat-1",
		Name:      "Warfarin",
		Status:    models.MedicationStatusActive,
	})
	require.NoError(t, err)

	body := map[string]any{
		"patient_id":   "pat-1",
		"name":         "Aspirin",
		"times_of_day": []int{9 * 60},
	}

	rec := postJSON(t, server.Handler(), "/api/medications", body)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error        string                   `json:"error"`
		Interactions []models.DrugInteraction `json:"interactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Interactions, 1)
	assert.Equal(t, models.SeverityCritical, resp.Interactions[0].Severity)

	// Same request with the override flag set goes through.
	body["override_interaction_warning"] = true
	rec = postJSON(t, server.Handler(), "/api/medications", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateMedicationValidation(t *testing.T) {
	server, _ := testServer(t)

	rec := postJSON(t, server.Handler(), "/api/medications", map[string]any{"patient_id": "pat-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, server.Handler(), "/api/medications", map[string]any{"name": "Aspirin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, server.Handler(), "/api/medications", map[string]any{
		"patient_id":   "pat-1",
		"name":         "Aspirin",
		"times_of_day": []int{2000},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMedicationComputesNextTrigger(t *testing.T) {
	server, _ := testServer(t)

	rec := postJSON(t, server.Handler(), "/api/medications", map[string]any{
		"patient_id":   "pat-1",
		"name":         "Metformin",
		"times_of_day": []int{9 * 60, 21 * 60},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var med models.Medication
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &med))
	require.NotNil(t, med.NextTrigger)
	assert.True(t, med.NextTrigger.After(time.Now()))
}

func TestMarkTakenEndpoint(t *testing.T) {
	server, meds := testServer(t)

	created, err := meds.Create(context.Background(), &models.Medication{
		PatientID: "pat-1",
		Name:      "Metformin",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/medications/"+created.ID+"/taken", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var med models.Medication
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &med))
	assert.Equal(t, 1, med.Adherence.TakenDoses)
	assert.Equal(t, 1, med.Adherence.CurrentStreak)
}

func TestCheckInteractionsEndpoint(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/interactions/check?drug=Aspirin&against=Warfarin&against=Metformin", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Interactions []models.DrugInteraction `json:"interactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Interactions, 1)
}

func TestGetMedicationNotFound(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/medications/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
