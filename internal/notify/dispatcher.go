package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dosewise/dosewise/internal/models"
)

// Dispatcher sends one already-composed message through one named channel.
// Its job is channel selection, precondition checking and failure
// containment: a failing channel is logged and reported as false, never
// propagated to the caller.
type Dispatcher struct {
	push   PushSender
	sms    SMSSender
	email  EmailSender
	voice  VoiceCaller
	logger *logrus.Logger

	// timeout bounds every transport call so a hung provider cannot stall
	// the timer that fired it.
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher. Any transport may be nil, in which case
// that channel is treated as permanently unconfigured.
func NewDispatcher(push PushSender, sms SMSSender, email EmailSender, voice VoiceCaller,
	timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		push:    push,
		sms:     sms,
		email:   email,
		voice:   voice,
		logger:  logger,
		timeout: timeout,
	}
}

// Dispatch delivers msg to the patient over the given channel and reports
// whether delivery was handed to the transport successfully.
func (d *Dispatcher) Dispatch(ctx context.Context, channel string, patient *models.Patient, msg Message) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.send(ctx, channel, patient, msg)
	if err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"channel":    channel,
			"patient_id": patient.ID,
		}).Warn("reminder delivery failed")
		return false
	}
	return true
}

func (d *Dispatcher) send(ctx context.Context, channel string, patient *models.Patient, msg Message) error {
	switch channel {
	case models.ChannelPush:
		if d.push == nil {
			return fmt.Errorf("push transport is not configured")
		}
		if len(patient.DeviceTokens) == 0 {
			return fmt.Errorf("patient has no registered device tokens")
		}
		return d.push.SendPush(ctx, patient.DeviceTokens, msg)

	case models.ChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("sms transport is not configured")
		}
		if patient.Phone == "" {
			return fmt.Errorf("patient has no phone number")
		}
		return d.sms.SendSMS(ctx, patient.Phone, msg)

	case models.ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("email transport is not configured")
		}
		if patient.Email == "" {
			return fmt.Errorf("patient has no email address")
		}
		return d.email.SendEmail(ctx, patient.Email, msg)

	case models.ChannelVoice:
		if d.voice == nil {
			return fmt.Errorf("voice transport is not configured")
		}
		if patient.Phone == "" {
			return fmt.Errorf("patient has no phone number")
		}
		return d.voice.PlaceCall(ctx, patient.Phone, msg)

	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

// DispatchEmergency sends a short alert to a single emergency contact. SMS is
// preferred; when no SMS transport is configured it falls back to a voice
// call. Failures are contained exactly like regular dispatches.
func (d *Dispatcher) DispatchEmergency(ctx context.Context, contact models.EmergencyContact, msg Message) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	switch {
	case contact.Phone == "":
		err = fmt.Errorf("emergency contact has no phone number")
	case d.sms != nil:
		err = d.sms.SendSMS(ctx, contact.Phone, msg)
	case d.voice != nil:
		err = d.voice.PlaceCall(ctx, contact.Phone, msg)
	default:
		err = fmt.Errorf("no transport available for emergency alerts")
	}

	if err != nil {
		d.logger.WithError(err).WithField("contact", contact.Name).Warn("emergency alert failed")
		return false
	}
	return true
}
