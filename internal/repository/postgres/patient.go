package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
)

type patientRepository struct {
	db *sql.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *sql.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	query := `
		INSERT INTO patients (id, name, phone, email, language, device_tokens, channels, emergency_contacts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	if patient.Language == "" {
		patient.Language = "en"
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now

	contacts, err := json.Marshal(patient.EmergencyContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode emergency contacts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Phone,
		patient.Email,
		patient.Language,
		pq.Array(patient.DeviceTokens),
		pq.Array(patient.Channels),
		contacts,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	return patient, nil
}

func (r *patientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	query := `
		SELECT id, name, phone, email, language, device_tokens, channels, emergency_contacts, created_at, updated_at
		FROM patients
		WHERE id = $1`

	patient := &models.Patient{}
	var tokens pq.Int64Array
	var channels pq.StringArray
	var contacts []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&patient.ID,
		&patient.Name,
		&patient.Phone,
		&patient.Email,
		&patient.Language,
		&tokens,
		&channels,
		&contacts,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	patient.DeviceTokens = tokens
	patient.Channels = channels
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &patient.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("failed to decode emergency contacts: %w", err)
		}
	}

	return patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	query := `
		UPDATE patients
		SET name = $2, phone = $3, email = $4, language = $5, device_tokens = $6, channels = $7, emergency_contacts = $8, updated_at = $9
		WHERE id = $1`

	patient.UpdatedAt = time.Now()

	contacts, err := json.Marshal(patient.EmergencyContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode emergency contacts: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Phone,
		patient.Email,
		patient.Language,
		pq.Array(patient.DeviceTokens),
		pq.Array(patient.Channels),
		contacts,
		patient.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("patient with ID %s not found", patient.ID)
	}

	return patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM patients WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("patient with ID %s not found", id)
	}

	return nil
}
