// Package repository owns notification telemetry records. All mutation goes
// through the Repository API so record invariants hold under concurrent
// access; nothing else writes to a record after Create.
package repository

import (
	"time"

	"notifyd/internal/notification/domain"
)

// Repository is the event store for telemetry records.
//
// Operations referencing an unknown event id are silent no-ops, not errors:
// escalation timers and acknowledgments race external cleanup by design, and
// a missing record just means the other side won.
type Repository interface {
	// Create publishes a fully-initialized record. The chosen channel and
	// sent timestamp must already be final. Returns false if the event id
	// already exists.
	Create(rec *domain.Record) bool
	// Get returns a copy of the record, or ok=false if absent.
	Get(eventID string) (*domain.Record, bool)
	// AppendLog appends one audit line to the record. No-op when absent.
	AppendLog(eventID, message string)
	// SetAck stamps the acknowledgment time. Only the first call takes
	// effect; returns true when this call was the one that applied.
	SetAck(eventID string, ch domain.Channel, ts time.Time) bool
	// SetFallback marks the record escalated to the given channel. Applies
	// only when no acknowledgment has landed and no fallback has fired yet;
	// returns true when this call applied. This check-and-set is the guard
	// that decides the ack-vs-timer race.
	SetFallback(eventID string, ch domain.Channel, ts time.Time) bool
	// ListRecent returns up to limit records, newest first.
	ListRecent(limit int) []*domain.Record
	// ListForUser returns the user's records newest first, one entry per
	// distinct event id.
	ListForUser(userID string) []*domain.Record
}
