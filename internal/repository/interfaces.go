package repository

import (
	"context"
	"time"

	"github.com/dosewise/dosewise/internal/models"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	Delete(ctx context.Context, id string) error
}

// MedicationRepository defines the interface for medication data operations
type MedicationRepository interface {
	Create(ctx context.Context, med *models.Medication) (*models.Medication, error)
	GetByID(ctx context.Context, id string) (*models.Medication, error)
	GetByPatientID(ctx context.Context, patientID string, filters MedicationFilters) ([]*models.Medication, error)
	// GetSchedulable returns active, unarchived, reminder-enabled medications
	// whose next trigger is still in the future.
	GetSchedulable(ctx context.Context) ([]*models.Medication, error)
	Update(ctx context.Context, med *models.Medication) (*models.Medication, error)
	UpdateNextTrigger(ctx context.Context, id string, next *time.Time) error
	UpdateAdherence(ctx context.Context, id string, adherence models.Adherence) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// MedicationFilters represents filters for querying medications
type MedicationFilters struct {
	Status          *models.MedicationStatus
	IncludeArchived bool
	Limit           int
	Offset          int
}
