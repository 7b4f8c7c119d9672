package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dosewise/dosewise/internal/models"
	"github.com/dosewise/dosewise/internal/repository"
	"github.com/dosewise/dosewise/internal/service"
)

// Server provides the HTTP API consumed by the companion apps.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Patients
	s.mux.HandleFunc("POST /api/patients", s.handleCreatePatient)
	s.mux.HandleFunc("GET /api/patients/{id}", s.handleGetPatient)
	s.mux.HandleFunc("PUT /api/patients/{id}", s.handleUpdatePatient)

	// API – Medications
	s.mux.HandleFunc("GET /api/medications", s.handleGetMedications)
	s.mux.HandleFunc("POST /api/medications", s.handleCreateMedication)
	s.mux.HandleFunc("GET /api/medications/{id}", s.handleGetMedication)
	s.mux.HandleFunc("PUT /api/medications/{id}", s.handleUpdateMedication)
	s.mux.HandleFunc("DELETE /api/medications/{id}", s.handleDeleteMedication)
	s.mux.HandleFunc("PUT /api/medications/{id}/taken", s.handleMarkTaken)
	s.mux.HandleFunc("PUT /api/medications/{id}/missed", s.handleMarkMissed)
	s.mux.HandleFunc("PUT /api/medications/{id}/archive", s.handleArchiveMedication)

	// API – Drug interactions
	s.mux.HandleFunc("GET /api/interactions/check", s.handleCheckInteractions)

	// Operational endpoints
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value.
func pathID(r *http.Request) (string, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return "", fmt.Errorf("missing id in path")
	}
	return raw, nil
}

// ---------------------------------------------------------------------------
// Patients
// ---------------------------------------------------------------------------

type patientRequest struct {
	Name              string                    `json:"name"`
	Phone             string                    `json:"phone"`
	Email             string                    `json:"email"`
	Language          string                    `json:"language"`
	DeviceTokens      []int64                   `json:"device_tokens"`
	Channels          []string                  `json:"channels"`
	EmergencyContacts []models.EmergencyContact `json:"emergency_contacts"`
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	patient := &models.Patient{
		Name:              strings.TrimSpace(req.Name),
		Phone:             strings.TrimSpace(req.Phone),
		Email:             strings.TrimSpace(req.Email),
		Language:          req.Language,
		DeviceTokens:      req.DeviceTokens,
		Channels:          req.Channels,
		EmergencyContacts: req.EmergencyContacts,
	}

	created, err := s.svc.Patients.Create(r.Context(), patient)
	if err != nil {
		s.logger.WithError(err).Error("failed to create patient")
		s.respondError(w, http.StatusInternalServerError, "failed to create patient")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	patient, err := s.svc.Patients.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to get patient")
		s.respondError(w, http.StatusInternalServerError, "failed to get patient")
		return
	}
	if patient == nil {
		s.respondError(w, http.StatusNotFound, "patient not found")
		return
	}

	s.respondJSON(w, http.StatusOK, patient)
}

func (s *Server) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	patient, err := s.svc.Patients.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to get patient")
		s.respondError(w, http.StatusInternalServerError, "failed to get patient")
		return
	}
	if patient == nil {
		s.respondError(w, http.StatusNotFound, "patient not found")
		return
	}

	var req patientRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		patient.Name = strings.TrimSpace(req.Name)
	}
	patient.Phone = strings.TrimSpace(req.Phone)
	patient.Email = strings.TrimSpace(req.Email)
	if req.Language != "" {
		patient.Language = req.Language
	}
	patient.DeviceTokens = req.DeviceTokens
	patient.Channels = req.Channels
	patient.EmergencyContacts = req.EmergencyContacts

	updated, err := s.svc.Patients.Update(r.Context(), patient)
	if err != nil {
		s.logger.WithError(err).Error("failed to update patient")
		s.respondError(w, http.StatusInternalServerError, "failed to update patient")
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Medications
// ---------------------------------------------------------------------------

type medicationRequest struct {
	PatientID               string   `json:"patient_id"`
	Name                    string   `json:"name"`
	DosageValue             float64  `json:"dosage_value"`
	DosageUnit              string   `json:"dosage_unit"`
	DosageForm              string   `json:"dosage_form"`
	Instructions            string   `json:"instructions"`
	TakeWith                string   `json:"take_with"`
	TimesOfDay              []int    `json:"times_of_day"` // minutes since midnight
	StartDate               string   `json:"start_date"`   // RFC 3339
	EndDate                 string   `json:"end_date"`     // RFC 3339, optional
	RemindersEnabled        *bool    `json:"reminders_enabled"`
	Methods                 []string `json:"methods"`
	NotifyEmergencyContacts bool     `json:"notify_emergency_contacts"`
	OverrideInteraction     bool     `json:"override_interaction_warning"`
}

func (s *Server) handleGetMedications(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patient_id")
	if patientID == "" {
		s.respondError(w, http.StatusBadRequest, "patient_id query parameter is required")
		return
	}

	var filters repository.MedicationFilters
	if status := r.URL.Query().Get("status"); status != "" {
		st := models.MedicationStatus(status)
		filters.Status = &st
	}
	filters.IncludeArchived = r.URL.Query().Get("include_archived") == "true"

	medications, err := s.svc.Medications.GetByPatientID(r.Context(), patientID, filters)
	if err != nil {
		s.logger.WithError(err).Error("failed to get medications")
		s.respondError(w, http.StatusInternalServerError, "failed to get medications")
		return
	}

	s.respondJSON(w, http.StatusOK, medications)
}

func (s *Server) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PatientID == "" {
		s.respondError(w, http.StatusBadRequest, "patient_id is required")
		return
	}
	for _, minutes := range req.TimesOfDay {
		if minutes < 0 || minutes >= 24*60 {
			s.respondError(w, http.StatusBadRequest, "times_of_day entries must be minutes in [0, 1440)")
			return
		}
	}

	med := &models.Medication{
		PatientID:    req.PatientID,
		Name:         strings.TrimSpace(req.Name),
		Dosage:       models.Dosage{Value: req.DosageValue, Unit: req.DosageUnit, Form: req.DosageForm},
		Instructions: strings.TrimSpace(req.Instructions),
		TakeWith:     strings.TrimSpace(req.TakeWith),
		Schedule:     models.Schedule{TimesOfDay: req.TimesOfDay, StartDate: time.Now()},
		Reminders: models.ReminderConfig{
			Enabled:                 true,
			Methods:                 req.Methods,
			NotifyEmergencyContacts: req.NotifyEmergencyContacts,
		},
	}
	if req.RemindersEnabled != nil {
		med.Reminders.Enabled = *req.RemindersEnabled
	}

	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "start_date must be RFC 3339 format")
			return
		}
		med.Schedule.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "end_date must be RFC 3339 format")
			return
		}
		med.Schedule.EndDate = &t
	}

	created, err := s.svc.CreateMedication(r.Context(), med, req.OverrideInteraction)
	if err != nil {
		var warning *service.InteractionWarning
		if errors.As(err, &warning) {
			s.respondJSON(w, http.StatusConflict, map[string]any{
				"error":        "known drug interactions found",
				"interactions": warning.Interactions,
			})
			return
		}
		s.logger.WithError(err).Error("failed to create medication")
		s.respondError(w, http.StatusInternalServerError, "failed to create medication")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	med, err := s.svc.Medications.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to get medication")
		s.respondError(w, http.StatusInternalServerError, "failed to get medication")
		return
	}
	if med == nil {
		s.respondError(w, http.StatusNotFound, "medication not found")
		return
	}

	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleUpdateMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	med, err := s.svc.Medications.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to get medication")
		s.respondError(w, http.StatusInternalServerError, "failed to get medication")
		return
	}
	if med == nil {
		s.respondError(w, http.StatusNotFound, "medication not found")
		return
	}

	var req medicationRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		med.Name = strings.TrimSpace(req.Name)
	}
	if req.DosageValue > 0 {
		med.Dosage = models.Dosage{Value: req.DosageValue, Unit: req.DosageUnit, Form: req.DosageForm}
	}
	med.Instructions = strings.TrimSpace(req.Instructions)
	med.TakeWith = strings.TrimSpace(req.TakeWith)
	if req.TimesOfDay != nil {
		for _, minutes := range req.TimesOfDay {
			if minutes < 0 || minutes >= 24*60 {
				s.respondError(w, http.StatusBadRequest, "times_of_day entries must be minutes in [0, 1440)")
				return
			}
		}
		med.Schedule.TimesOfDay = req.TimesOfDay
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "end_date must be RFC 3339 format")
			return
		}
		med.Schedule.EndDate = &t
	}
	if req.RemindersEnabled != nil {
		med.Reminders.Enabled = *req.RemindersEnabled
	}
	if req.Methods != nil {
		med.Reminders.Methods = req.Methods
	}
	med.Reminders.NotifyEmergencyContacts = req.NotifyEmergencyContacts

	updated, err := s.svc.UpdateMedication(r.Context(), med)
	if err != nil {
		s.logger.WithError(err).Error("failed to update medication")
		s.respondError(w, http.StatusInternalServerError, "failed to update medication")
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	if err := s.svc.Medications.Delete(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("failed to delete medication")
		s.respondError(w, http.StatusInternalServerError, "failed to delete medication")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMarkTaken(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	med, err := s.svc.MarkTaken(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to mark dose taken")
		s.respondError(w, http.StatusInternalServerError, "failed to mark dose taken")
		return
	}

	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleMarkMissed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	med, err := s.svc.MarkMissed(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to mark dose missed")
		s.respondError(w, http.StatusInternalServerError, "failed to mark dose missed")
		return
	}

	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleArchiveMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication id")
		return
	}

	if err := s.svc.Medications.Archive(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("failed to archive medication")
		s.respondError(w, http.StatusInternalServerError, "failed to archive medication")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// ---------------------------------------------------------------------------
// Drug interactions
// ---------------------------------------------------------------------------

func (s *Server) handleCheckInteractions(w http.ResponseWriter, r *http.Request) {
	drug := r.URL.Query().Get("drug")
	if drug == "" {
		s.respondError(w, http.StatusBadRequest, "drug query parameter is required")
		return
	}

	against := r.URL.Query()["against"]
	matches := s.svc.Interactions.Check(drug, against)
	if matches == nil {
		matches = []models.DrugInteraction{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"interactions": matches})
}

// ---------------------------------------------------------------------------
// Operational
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
