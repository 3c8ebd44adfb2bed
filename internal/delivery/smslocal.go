package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notifyd/internal/notification/domain"
)

const defaultTimeout = 15 * time.Second

// SMSLocalClient sends SMS via the SMS Local API.
// See https://www.smslocal.com/dev/bulkV2.
type SMSLocalClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSLocalClient returns a client that uses the given API key and optional
// base URL/sender.
func NewSMSLocalClient(apiKey, baseURL, sender string) *SMSLocalClient {
	if baseURL == "" {
		baseURL = "https://www.smslocal.com/dev/bulkV2"
	}
	return &SMSLocalClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendText sends message to the given phone number. phone should be digits
// only (country code + number).
func (c *SMSLocalClient) SendText(phone, message string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	body := map[string]interface{}{
		"route":   "transactional",
		"numbers": phone,
		"message": message,
	}
	if c.Sender != "" {
		body["sender"] = c.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// PhoneLookup resolves a user id to a phone number; "" means unknown.
type PhoneLookup func(userID string) string

// SMSLocalSender routes SMS and SMS_BINDING deliveries through SMS Local and
// delegates every other channel to next.
type SMSLocalSender struct {
	client *SMSLocalClient
	lookup PhoneLookup
	next   Sender
}

// NewSMSLocalSender wraps next with SMS Local delivery for SMS channels.
func NewSMSLocalSender(client *SMSLocalClient, lookup PhoneLookup, next Sender) *SMSLocalSender {
	return &SMSLocalSender{client: client, lookup: lookup, next: next}
}

// Send delivers SMS-channel messages via SMS Local when a phone number is
// known, otherwise falls through to the wrapped sender.
func (s *SMSLocalSender) Send(ctx context.Context, ch domain.Channel, userID, message string) error {
	if ch == domain.ChannelSMS || ch == domain.ChannelSMSBinding {
		if s.lookup != nil {
			if phone := s.lookup(userID); phone != "" {
				return s.client.SendText(phone, message)
			}
		}
	}
	if s.next != nil {
		return s.next.Send(ctx, ch, userID, message)
	}
	return nil
}
