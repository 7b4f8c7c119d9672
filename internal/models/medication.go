package models

import (
	"fmt"
	"strings"
	"time"
)

// MedicationStatus represents the lifecycle status of a medication
type MedicationStatus string

const (
	MedicationStatusActive    MedicationStatus = "active"
	MedicationStatusCompleted MedicationStatus = "completed"
	MedicationStatusStopped   MedicationStatus = "stopped"
	MedicationStatusPaused    MedicationStatus = "paused"
)

// Notification channels a reminder can be delivered through
const (
	ChannelPush  = "push"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelVoice = "voice"
)

// Dosage describes how much of the medication is taken per dose
type Dosage struct {
	Value float64 `json:"value" db:"dosage_value"`
	Unit  string  `json:"unit" db:"dosage_unit"`
	Form  string  `json:"form" db:"dosage_form"`
}

// String renders the dosage for display, e.g. "500 mg tablet"
func (d Dosage) String() string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", d.Value), "0"), ".")
	if d.Unit != "" {
		s += " " + d.Unit
	}
	if d.Form != "" {
		s += " " + d.Form
	}
	return s
}

// Schedule defines when doses are due: an ordered set of times of day
// (minutes since midnight) bounded by a start date and an optional end date.
type Schedule struct {
	TimesOfDay []int      `json:"times_of_day"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// ReminderConfig controls whether and how reminders are delivered
type ReminderConfig struct {
	Enabled                 bool     `json:"enabled"`
	Methods                 []string `json:"methods"`
	NotifyEmergencyContacts bool     `json:"notify_emergency_contacts"`
}

// Adherence tracks dose-level compliance counters for a medication
type Adherence struct {
	TotalDoses    int `json:"total_doses"`
	TakenDoses    int `json:"taken_doses"`
	MissedDoses   int `json:"missed_doses"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// Rate returns the fraction of tracked doses that were taken
func (a Adherence) Rate() float64 {
	if a.TotalDoses == 0 {
		return 0
	}
	return float64(a.TakenDoses) / float64(a.TotalDoses)
}

// Medication represents a schedulable medication record
type Medication struct {
	ID           string           `json:"id" db:"id"`
	PatientID    string           `json:"patient_id" db:"patient_id"`
	Name         string           `json:"name" db:"name"`
	Dosage       Dosage           `json:"dosage"`
	Instructions string           `json:"instructions" db:"instructions"`
	TakeWith     string           `json:"take_with" db:"take_with"`
	Schedule     Schedule         `json:"schedule"`
	Reminders    ReminderConfig   `json:"reminders"`
	Status       MedicationStatus `json:"status" db:"status"`
	Archived     bool             `json:"archived" db:"archived"`
	NextTrigger  *time.Time       `json:"next_trigger" db:"next_trigger"`
	Adherence    Adherence        `json:"adherence"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	Patient      *Patient         `json:"patient,omitempty"`
}

// Schedulable returns true if the medication should have a reminder timer
func (m *Medication) Schedulable() bool {
	return m.Status == MedicationStatusActive && !m.Archived && m.Reminders.Enabled
}

// ChannelList returns the configured reminder channels, defaulting to push
// when none are configured.
func (m *Medication) ChannelList() []string {
	if len(m.Reminders.Methods) == 0 {
		return []string{ChannelPush}
	}
	return m.Reminders.Methods
}

// NextOccurrence computes the next future instant a reminder for this
// medication should fire. For each time-of-day slot, today's instant at that
// time is taken, rolled to tomorrow when it has already passed; the earliest
// candidate wins. Candidates past the schedule's end date are excluded.
// Returns nil when the schedule has no usable slots.
func (m *Medication) NextOccurrence(now time.Time) *time.Time {
	var next *time.Time
	for _, minutes := range m.Schedule.TimesOfDay {
		candidate := time.Date(now.Year(), now.Month(), now.Day(),
			minutes/60, minutes%60, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if m.Schedule.EndDate != nil && candidate.After(*m.Schedule.EndDate) {
			continue
		}
		if next == nil || candidate.Before(*next) {
			c := candidate
			next = &c
		}
	}
	return next
}
