package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
)

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	db           *sql.DB
	logger       *logrus.Logger
	Patients     repository.PatientRepository
	Medications  repository.MedicationRepository
	Interactions *InteractionTable
}

// New creates a new Service with all required dependencies.
func New(db *sql.DB, logger *logrus.Logger,
	patients repository.PatientRepository,
	medications repository.MedicationRepository,
	interactions *InteractionTable,
) *Service {
	return &Service{
		db: db, logger: logger,
		Patients: patients, Medications: medications,
		Interactions: interactions,
	}
}

// InteractionWarning is returned when a new medication interacts with the
// patient's existing active drugs and the caller has not overridden the
// warning. It is a confirmation gate, not a hard block: the caller retries
// with the override flag set once the patient has confirmed.
type InteractionWarning struct {
	Interactions []models.DrugInteraction `json:"interactions"`
}

func (w *InteractionWarning) Error() string {
	return fmt.Sprintf("medication interacts with %d existing drug(s)", len(w.Interactions))
}

// CreateMedication validates the record against the interaction table and
// persists it with its initial next trigger computed. When interactions are
// found and overrideWarning is false, creation is refused with an
// *InteractionWarning.
func (s *Service) CreateMedication(ctx context.Context, med *models.Medication, overrideWarning bool) (*models.Medication, error) {
	med.Name = strings.TrimSpace(med.Name)
	if med.Name == "" {
		return nil, fmt.Errorf("medication name is required")
	}

	active := models.MedicationStatusActive
	existing, err := s.Medications.GetByPatientID(ctx, med.PatientID, repository.MedicationFilters{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing medications for patient %s: %w", med.PatientID, err)
	}

	names := make([]string, 0, len(existing))
	for _, m := range existing {
		names = append(names, m.Name)
	}

	if matches := s.Interactions.Check(med.Name, names); len(matches) > 0 && !overrideWarning {
		s.logger.WithFields(logrus.Fields{
			"patient_id": med.PatientID,
			"drug":       med.Name,
			"matches":    len(matches),
		}).Warn("medication creation refused: known drug interactions")
		return nil, &InteractionWarning{Interactions: matches}
	}

	if med.Status == "" {
		med.Status = models.MedicationStatusActive
	}
	med.NextTrigger = med.NextOccurrence(time.Now())

	created, err := s.Medications.Create(ctx, med)
	if err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	s.logger.Infof("Created medication %q for patient %s", created.Name, created.PatientID)
	return created, nil
}

// MarkTaken records that the current dose was taken and updates the
// adherence counters and streaks.
func (s *Service) MarkTaken(ctx context.Context, id string) (*models.Medication, error) {
	med, err := s.Medications.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medication %s: %w", id, err)
	}
	if med == nil {
		return nil, fmt.Errorf("medication %s not found", id)
	}

	med.Adherence.TotalDoses++
	med.Adherence.TakenDoses++
	med.Adherence.CurrentStreak++
	if med.Adherence.CurrentStreak > med.Adherence.LongestStreak {
		med.Adherence.LongestStreak = med.Adherence.CurrentStreak
	}

	if err := s.Medications.UpdateAdherence(ctx, id, med.Adherence); err != nil {
		return nil, fmt.Errorf("failed to update adherence for %s: %w", id, err)
	}
	return med, nil
}

// MarkMissed records that the current dose was missed and resets the streak.
func (s *Service) MarkMissed(ctx context.Context, id string) (*models.Medication, error) {
	med, err := s.Medications.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medication %s: %w", id, err)
	}
	if med == nil {
		return nil, fmt.Errorf("medication %s not found", id)
	}

	med.Adherence.TotalDoses++
	med.Adherence.MissedDoses++
	med.Adherence.CurrentStreak = 0

	if err := s.Medications.UpdateAdherence(ctx, id, med.Adherence); err != nil {
		return nil, fmt.Errorf("failed to update adherence for %s: %w", id, err)
	}
	return med, nil
}

// UpdateMedication persists a schedule or configuration change and recomputes
// the next trigger from the updated schedule. The scheduler's reconciliation
// sweep picks the change up on its next pass.
func (s *Service) UpdateMedication(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	if med.Schedulable() {
		med.NextTrigger = med.NextOccurrence(time.Now())
	} else {
		med.NextTrigger = nil
	}

	updated, err := s.Medications.Update(ctx, med)
	if err != nil {
		return nil, fmt.Errorf("failed to update medication %s: %w", med.ID, err)
	}
	return updated, nil
}
