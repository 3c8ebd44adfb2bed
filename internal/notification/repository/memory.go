package repository

import (
	"sync"
	"time"

	"notifyd/internal/notification/domain"
)

// MemoryRepository is the in-memory Repository implementation. One mutex
// serializes every mutation, so ack and fallback cannot both win for the same
// record. Reads hand out deep copies.
//
// Records are never deleted; retention is the host's concern.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
	// order holds event ids in insertion order (oldest first); ListRecent
	// walks it backwards. A keyed map has no usable ordering of its own.
	order []string
	// byUser maps user id -> event ids in insertion order, duplicates
	// suppressed at insert.
	byUser map[string][]string
}

// NewMemoryRepository returns an empty in-memory event store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*domain.Record),
		byUser:  make(map[string][]string),
	}
}

// Create publishes rec. Returns false without mutating anything if the event
// id is already present.
func (r *MemoryRepository) Create(rec *domain.Record) bool {
	if rec == nil || rec.EventID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.EventID]; exists {
		return false
	}
	r.records[rec.EventID] = rec.Clone()
	r.order = append(r.order, rec.EventID)
	if rec.UserID != "" {
		r.byUser[rec.UserID] = append(r.byUser[rec.UserID], rec.EventID)
	}
	return true
}

// Get returns a copy of the record for eventID.
func (r *MemoryRepository) Get(eventID string) (*domain.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[eventID]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// AppendLog appends one audit line. Silent no-op for unknown ids.
func (r *MemoryRepository) AppendLog(eventID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[eventID]
	if !ok {
		return
	}
	rec.Logs = append(rec.Logs, domain.LogEntry{Timestamp: time.Now().UTC(), Message: message})
}

// SetAck stamps ack_ts once. Later calls (and calls on unknown ids) return
// false and change nothing, which makes acknowledgment idempotent.
func (r *MemoryRepository) SetAck(eventID string, ch domain.Channel, ts time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[eventID]
	if !ok || rec.AckTS != nil {
		return false
	}
	ack := ts
	rec.AckTS = &ack
	rec.AckChannel = ch
	return true
}

// SetFallback marks the record escalated. The whole check runs under the
// store mutex: if an acknowledgment already landed, or a fallback already
// fired, nothing happens. An ack that wins here makes fallback permanently
// impossible.
func (r *MemoryRepository) SetFallback(eventID string, ch domain.Channel, ts time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[eventID]
	if !ok || rec.AckTS != nil || rec.FallbackTriggered {
		return false
	}
	rec.FallbackTriggered = true
	fb := ch
	rec.FallbackChannel = &fb
	rec.Logs = append(rec.Logs, domain.LogEntry{
		Timestamp: ts,
		Message:   "escalation deadline passed without ack; fallback channel " + string(ch),
	})
	return true
}

// ListRecent returns up to limit records, newest first.
func (r *MemoryRepository) ListRecent(limit int) []*domain.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]*domain.Record, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[r.order[i]].Clone())
	}
	return out
}

// ListForUser returns the user's records newest first. Event ids are unique
// in byUser because Create rejects duplicates, so no entry repeats.
func (r *MemoryRepository) ListForUser(userID string) []*domain.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]*domain.Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.records[ids[i]].Clone())
	}
	return out
}
