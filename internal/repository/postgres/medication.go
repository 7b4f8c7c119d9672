package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
)

const medicationColumns = `id, patient_id, name, dosage_value, dosage_unit, dosage_form,
	instructions, take_with, times_of_day, start_date, end_date,
	reminders_enabled, methods, notify_emergency_contacts,
	status, archived, next_trigger,
	total_doses, taken_doses, missed_doses, current_streak, longest_streak,
	created_at, updated_at`

type medicationRepository struct {
	db *sql.DB
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db *sql.DB) repository.MedicationRepository {
	return &medicationRepository{db: db}
}

func (r *medicationRepository) Create(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	query := `
		INSERT INTO medications (id, patient_id, name, dosage_value, dosage_unit, dosage_form,
			instructions, take_with, times_of_day, start_date, end_date,
			reminders_enabled, methods, notify_emergency_contacts,
			status, archived, next_trigger,
			total_doses, taken_doses, missed_doses, current_streak, longest_streak,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	now := time.Now()
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if med.Status == "" {
		med.Status = models.MedicationStatusActive
	}
	med.CreatedAt = now
	med.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		med.ID,
		med.PatientID,
		med.Name,
		med.Dosage.Value,
		med.Dosage.Unit,
		med.Dosage.Form,
		med.Instructions,
		med.TakeWith,
		pq.Array(intsToInt64(med.Schedule.TimesOfDay)),
		med.Schedule.StartDate,
		med.Schedule.EndDate,
		med.Reminders.Enabled,
		pq.Array(med.Reminders.Methods),
		med.Reminders.NotifyEmergencyContacts,
		med.Status,
		med.Archived,
		med.NextTrigger,
		med.Adherence.TotalDoses,
		med.Adherence.TakenDoses,
		med.Adherence.MissedDoses,
		med.Adherence.CurrentStreak,
		med.Adherence.LongestStreak,
		med.CreatedAt,
		med.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	return med, nil
}

func (r *medicationRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	query := fmt.Sprintf(`SELECT %s FROM medications WHERE id = $1`, medicationColumns)

	med, err := scanMedication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	return med, nil
}

func (r *medicationRepository) GetByPatientID(ctx context.Context, patientID string, filters repository.MedicationFilters) ([]*models.Medication, error) {
	query := fmt.Sprintf(`SELECT %s FROM medications WHERE patient_id = $1`, medicationColumns)
	args := []any{patientID}

	if filters.Status != nil {
		args = append(args, *filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filters.IncludeArchived {
		query += " AND archived = false"
	}
	query += " ORDER BY created_at ASC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications by patient ID: %w", err)
	}
	defer rows.Close()

	return collectMedications(rows)
}

func (r *medicationRepository) GetSchedulable(ctx context.Context) ([]*models.Medication, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM medications
		WHERE status = 'active' AND archived = false AND reminders_enabled = true
			AND next_trigger IS NOT NULL AND next_trigger > NOW()
		ORDER BY next_trigger ASC`, medicationColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedulable medications: %w", err)
	}
	defer rows.Close()

	return collectMedications(rows)
}

func (r *medicationRepository) Update(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	query := `
		UPDATE medications
		SET name = $2, dosage_value = $3, dosage_unit = $4, dosage_form = $5,
			instructions = $6, take_with = $7, times_of_day = $8, start_date = $9, end_date = $10,
			reminders_enabled = $11, methods = $12, notify_emergency_contacts = $13,
			status = $14, archived = $15, next_trigger = $16, updated_at = $17
		WHERE id = $1`

	med.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		med.ID,
		med.Name,
		med.Dosage.Value,
		med.Dosage.Unit,
		med.Dosage.Form,
		med.Instructions,
		med.TakeWith,
		pq.Array(intsToInt64(med.Schedule.TimesOfDay)),
		med.Schedule.StartDate,
		med.Schedule.EndDate,
		med.Reminders.Enabled,
		pq.Array(med.Reminders.Methods),
		med.Reminders.NotifyEmergencyContacts,
		med.Status,
		med.Archived,
		med.NextTrigger,
		med.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}
	if err := requireRowsAffected(result, med.ID); err != nil {
		return nil, err
	}

	return med, nil
}

func (r *medicationRepository) UpdateNextTrigger(ctx context.Context, id string, next *time.Time) error {
	query := `
		UPDATE medications
		SET next_trigger = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, next, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update next trigger: %w", err)
	}
	return requireRowsAffected(result, id)
}

func (r *medicationRepository) UpdateAdherence(ctx context.Context, id string, adherence models.Adherence) error {
	query := `
		UPDATE medications
		SET total_doses = $2, taken_doses = $3, missed_doses = $4,
			current_streak = $5, longest_streak = $6, updated_at = $7
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		id,
		adherence.TotalDoses,
		adherence.TakenDoses,
		adherence.MissedDoses,
		adherence.CurrentStreak,
		adherence.LongestStreak,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update adherence: %w", err)
	}
	return requireRowsAffected(result, id)
}

func (r *medicationRepository) Archive(ctx context.Context, id string) error {
	query := `
		UPDATE medications
		SET archived = true, next_trigger = NULL, updated_at = $2
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive medication: %w", err)
	}
	return requireRowsAffected(result, id)
}

func (r *medicationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM medications WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return requireRowsAffected(result, id)
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (*models.Medication, error) {
	med := &models.Medication{}
	var times pq.Int64Array
	var methods pq.StringArray

	err := row.Scan(
		&med.ID,
		&med.PatientID,
		&med.Name,
		&med.Dosage.Value,
		&med.Dosage.Unit,
		&med.Dosage.Form,
		&med.Instructions,
		&med.TakeWith,
		&times,
		&med.Schedule.StartDate,
		&med.Schedule.EndDate,
		&med.Reminders.Enabled,
		&methods,
		&med.Reminders.NotifyEmergencyContacts,
		&med.Status,
		&med.Archived,
		&med.NextTrigger,
		&med.Adherence.TotalDoses,
		&med.Adherence.TakenDoses,
		&med.Adherence.MissedDoses,
		&med.Adherence.CurrentStreak,
		&med.Adherence.LongestStreak,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	med.Schedule.TimesOfDay = int64sToInts(times)
	med.Reminders.Methods = methods
	return med, nil
}

func collectMedications(rows *sql.Rows) ([]*models.Medication, error) {
	var medications []*models.Medication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		medications = append(medications, med)
	}
	return medications, rows.Err()
}

func requireRowsAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("medication with ID %s not found", id)
	}
	return nil
}

func intsToInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func int64sToInts(values []int64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
