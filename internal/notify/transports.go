package notify

import "context"

// Transport interfaces. One implementation exists per channel type; retries,
// delivery receipts and provider payloads are the transport's concern, not
// the dispatcher's.

// PushSender delivers a push notification to a set of registered device tokens.
type PushSender interface {
	SendPush(ctx context.Context, tokens []int64, msg Message) error
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone string, msg Message) error
}

// EmailSender delivers an email.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, msg Message) error
}

// VoiceCaller places an automated voice call reading the message out.
type VoiceCaller interface {
	PlaceCall(ctx context.Context, phone string, msg Message) error
}
