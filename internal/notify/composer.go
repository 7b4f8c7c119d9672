package notify

import (
	"fmt"
	"strings"

	"github.com/dosewise/dosewise/internal/models"
)

// Message is the composed, ready-to-send content for one reminder
type Message struct {
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Instructions string            `json:"instructions"`
	Language     string            `json:"language"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// LocaleHindi is the single supported non-default locale
const LocaleHindi = "hi"

// Composer builds reminder content for a medication and its patient. It is
// pure: the same inputs always produce the same message.
//
// VoiceLocale is the locale every voice message is rendered in, regardless of
// the patient's stored language preference. This asymmetry with the other
// channels is a deliberate product policy; change it via configuration, not
// here.
type Composer struct {
	VoiceLocale string
}

// NewComposer creates a Composer. An empty voiceLocale defaults to Hindi.
func NewComposer(voiceLocale string) *Composer {
	if voiceLocale == "" {
		voiceLocale = LocaleHindi
	}
	return &Composer{VoiceLocale: voiceLocale}
}

// Compose builds the reminder message for one channel. All channels honor the
// patient's language preference except voice, which always uses VoiceLocale.
func (c *Composer) Compose(med *models.Medication, patient *models.Patient, channel string) Message {
	lang := patient.Language
	if channel == models.ChannelVoice {
		lang = c.VoiceLocale
	}

	msg := Message{
		Language: lang,
		Metadata: map[string]string{
			"medication_id": med.ID,
			"patient_id":    patient.ID,
			"channel":       channel,
		},
	}

	dose := med.Dosage.String()
	switch lang {
	case LocaleHindi:
		msg.Title = "दवा लेने का समय"
		msg.Body = fmt.Sprintf("%s, %s (%s) लेने का समय हो गया है", patient.Name, med.Name, dose)
		msg.Instructions = hindiInstructions(med.Instructions)
	default:
		msg.Title = "Medication Reminder"
		msg.Body = fmt.Sprintf("Hi %s, it's time to take %s (%s)", patient.Name, med.Name, dose)
		msg.Instructions = med.Instructions
	}

	if med.TakeWith != "" {
		msg.Body += " - " + med.TakeWith
	}

	return msg
}

// ComposeEmergencyAlert builds the short alert sent to emergency contacts
// when a patient's reminder is configured to notify them.
func (c *Composer) ComposeEmergencyAlert(med *models.Medication, patient *models.Patient) Message {
	return Message{
		Title:    "Medication Alert",
		Body:     fmt.Sprintf("%s has a scheduled dose of %s (%s) due now", patient.Name, med.Name, med.Dosage.String()),
		Language: "en",
		Metadata: map[string]string{
			"medication_id": med.ID,
			"patient_id":    patient.ID,
		},
	}
}

// hindiInstructions maps a small fixed set of instruction keywords to their
// Hindi phrase. Matching is a case-insensitive substring check in priority
// order; unmatched instructions keep the original text with a generic Hindi
// suffix appended.
func hindiInstructions(instructions string) string {
	if instructions == "" {
		return ""
	}
	lower := strings.ToLower(instructions)
	switch {
	case strings.Contains(lower, "after food"):
		return "खाने के बाद लें"
	case strings.Contains(lower, "before food"):
		return "खाने से पहले लें"
	case strings.Contains(lower, "with food"):
		return "खाने के साथ लें"
	default:
		return instructions + " (कृपया निर्देशों का पालन करें)"
	}
}
