package models

import (
	"sort"
	"time"
)

// EmergencyContact is a person alerted when a patient misses critical doses
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Priority int    `json:"priority"`
}

// Patient represents the person reminders and alerts are sent to
type Patient struct {
	ID                string             `json:"id" db:"id"`
	Name              string             `json:"name" db:"name"`
	Phone             string             `json:"phone" db:"phone"`
	Email             string             `json:"email" db:"email"`
	Language          string             `json:"language" db:"language"`
	DeviceTokens      []int64            `json:"device_tokens"`
	Channels          []string           `json:"channels"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// ContactsByPriority returns the emergency contacts ordered by ascending
// priority (1 is contacted first).
func (p *Patient) ContactsByPriority() []EmergencyContact {
	contacts := make([]EmergencyContact, len(p.EmergencyContacts))
	copy(contacts, p.EmergencyContacts)
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].Priority < contacts[j].Priority
	})
	return contacts
}
