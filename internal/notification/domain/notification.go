// Package domain holds the notification engine's core types: channels,
// event types, context snapshots, and per-event telemetry records.
package domain

import "time"

// Channel is a delivery medium for a security notification.
type Channel string

const (
	ChannelInApp      Channel = "IN_APP"
	ChannelPush       Channel = "PUSH"
	ChannelWhatsApp   Channel = "WHATSAPP"
	ChannelSMS        Channel = "SMS"
	ChannelSMSBinding Channel = "SMS_BINDING"
	// ChannelAnalyzing is the transient pre-decision value. It must never be
	// visible outside the service: records are published to the store only
	// after the channel is finalized.
	ChannelAnalyzing Channel = "ANALYZING"
)

// Well-known event types. EventType is open-ended; callers may supply any
// non-empty string (e.g. "TRANSACTION_ALERT").
const (
	EventTypeLoginAttempt   = "LOGIN_ATTEMPT"
	EventTypeTrustedLogin   = "TRUSTED_LOGIN"
	EventTypeNewDeviceLogin = "NEW_DEVICE_LOGIN"
	EventTypeLoginOTP       = "LOGIN_OTP"
)

// ContextSnapshot is the device/session context a dispatch decision runs on.
// Ephemeral input; not persisted standalone.
type ContextSnapshot struct {
	HasApp        bool `json:"has_app"`
	IsActive      bool `json:"is_active"`
	DeviceOnline  bool `json:"device_online"`
	WhatsAppOptIn bool `json:"whatsapp_opt_in"`
}

// ContextPatch is a partial context update; nil fields are left unchanged.
type ContextPatch struct {
	HasApp        *bool `json:"has_app"`
	IsActive      *bool `json:"is_active"`
	DeviceOnline  *bool `json:"device_online"`
	WhatsAppOptIn *bool `json:"whatsapp_opt_in"`
}

// Apply merges the patch into snap and returns the result.
func (p ContextPatch) Apply(snap ContextSnapshot) ContextSnapshot {
	if p.HasApp != nil {
		snap.HasApp = *p.HasApp
	}
	if p.IsActive != nil {
		snap.IsActive = *p.IsActive
	}
	if p.DeviceOnline != nil {
		snap.DeviceOnline = *p.DeviceOnline
	}
	if p.WhatsAppOptIn != nil {
		snap.WhatsAppOptIn = *p.WhatsAppOptIn
	}
	return snap
}

// LogEntry is one line of a record's causal audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Record is the telemetry record for one notification event.
//
// Invariants (enforced by the repository, which exclusively owns records):
//   - ChosenChannel is set once at dispatch and never overwritten.
//   - SentTS is set once at dispatch, immutable thereafter.
//   - AckTS, once non-nil, never changes or reverts.
//   - FallbackTriggered transitions false->true at most once, and only while
//     AckTS is still nil.
//   - Logs is append-only; every record carries at least the initiating
//     decision entry.
type Record struct {
	EventID           string     `json:"event_id"`
	UserID            string     `json:"user_id"`
	EventType         string     `json:"event_type"`
	ChosenChannel     Channel    `json:"chosen_channel"`
	SentTS            time.Time  `json:"sent_ts"`
	AckTS             *time.Time `json:"ack_ts"`
	AckChannel        Channel    `json:"ack_channel,omitempty"`
	FallbackTriggered bool       `json:"fallback_triggered"`
	FallbackChannel   *Channel   `json:"fallback_channel"`
	Logs              []LogEntry `json:"logs"`
}

// Clone returns a deep copy so callers can read a record without racing the
// store's mutations.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.AckTS != nil {
		ts := *r.AckTS
		cp.AckTS = &ts
	}
	if r.FallbackChannel != nil {
		ch := *r.FallbackChannel
		cp.FallbackChannel = &ch
	}
	cp.Logs = make([]LogEntry, len(r.Logs))
	copy(cp.Logs, r.Logs)
	return &cp
}

// DispatchResult is returned by the dispatch operation.
type DispatchResult struct {
	EventID       string  `json:"event_id"`
	ChosenChannel Channel `json:"chosen_channel"`
	Record        *Record `json:"record"`
}

// Login attempt statuses.
const (
	LoginStatusTrusted         = "TRUSTED"
	LoginStatusBindingRequired = "BINDING_REQUIRED"
)

// LoginResult is returned by the login-attempt operation. VerifyNumber and
// BindingCode are set only for the BINDING_REQUIRED branch; BindingCode is
// populated only when dev code return is enabled.
type LoginResult struct {
	Status       string  `json:"status"`
	EventID      string  `json:"event_id"`
	Channel      Channel `json:"channel"`
	VerifyNumber string  `json:"verify_number,omitempty"`
	BindingCode  string  `json:"binding_code,omitempty"`
}
