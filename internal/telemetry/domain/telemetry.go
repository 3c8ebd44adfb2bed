package domain

import "time"

// Actions recorded in telemetry events.
const (
	ActionDispatch        = "dispatch"
	ActionAcknowledge     = "acknowledge"
	ActionFallback        = "fallback"
	ActionLoginAttempt    = "login_attempt"
	ActionCompleteBinding = "complete_binding"
	ActionHTTPRequest     = "http_request"
)

// Event is one structured telemetry event emitted by the notification engine
// (to Kafka, OTel logs, or both). The JSON field names are the wire format
// the worker parses for Loki labels.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	EventID   string    `json:"eventId,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	Action    string    `json:"action"`
	Channel   string    `json:"channel,omitempty"`
	Source    string    `json:"source"`
	Metadata  []byte    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
