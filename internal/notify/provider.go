package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// ProviderClient is the SMS and voice transport, backed by the messaging
// provider's HTTP API. It implements both SMSSender and VoiceCaller.
type ProviderClient struct {
	client *resty.Client
}

// NewProviderClient creates a provider client for the given base URL
func NewProviderClient(baseURL, apiKey string) *ProviderClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")

	return &ProviderClient{client: client}
}

type smsRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type callRequest struct {
	To       string `json:"to"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

// SendSMS sends the message body as a text message
func (p *ProviderClient) SendSMS(ctx context.Context, phone string, msg Message) error {
	text := msg.Body
	if msg.Instructions != "" {
		text += " " + msg.Instructions
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(smsRequest{To: phone, Text: text}).
		Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", phone, err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms provider returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}

// PlaceCall requests an automated voice call reading the message out in the
// message's language.
func (p *ProviderClient) PlaceCall(ctx context.Context, phone string, msg Message) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(callRequest{To: phone, Text: msg.Body, Language: msg.Language}).
		Post("/v1/calls")
	if err != nil {
		return fmt.Errorf("failed to place call to %s: %w", phone, err)
	}
	if resp.IsError() {
		return fmt.Errorf("voice provider returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
