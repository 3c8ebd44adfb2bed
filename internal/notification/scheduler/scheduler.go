// Package scheduler arms per-event escalation deadlines. Timers fire on their
// own goroutines and go through the repository's check-and-set; there is no
// cancel API. An acknowledgment that lands first makes the expiry a no-op, so
// correctness never depends on stopping a timer.
package scheduler

import (
	"context"
	"log"
	"time"

	"notifyd/internal/notification/domain"
	"notifyd/internal/notification/repository"
	"notifyd/internal/telemetry"
	telemetrydomain "notifyd/internal/telemetry/domain"
)

// DefaultTimeout is the process-wide escalation deadline when config does not
// override it.
const DefaultTimeout = 30 * time.Second

// Scheduler arms one deadline timer per dispatched event.
type Scheduler struct {
	repo    repository.Repository
	timeout time.Duration
	emitter telemetry.EventEmitter
	nowF    func() time.Time
}

// New returns a Scheduler with the given process-wide deadline. A timeout of
// zero or less falls back to DefaultTimeout. emitter may be nil; committed
// fallbacks are then only logged.
func New(repo repository.Repository, timeout time.Duration, emitter telemetry.EventEmitter) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scheduler{
		repo:    repo,
		timeout: timeout,
		emitter: emitter,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Timeout returns the armed deadline duration.
func (s *Scheduler) Timeout() time.Duration {
	return s.timeout
}

// Arm starts the escalation timer for eventID. On expiry the fallback channel
// is computed and committed through the repository guard; if the record was
// acknowledged (or removed) in the meantime the expiry is a lost race and
// changes nothing. Callers arm at most once per event. Arm never blocks.
func (s *Scheduler) Arm(eventID string, fallback func() domain.Channel) {
	time.AfterFunc(s.timeout, func() {
		ch := fallback()
		if !s.repo.SetFallback(eventID, ch, s.nowF()) {
			return
		}
		log.Printf("scheduler: event %s escalated to %s after %s without ack", eventID, ch, s.timeout)
		rec, _ := s.repo.Get(eventID)
		userID, eventType := "", ""
		if rec != nil {
			userID, eventType = rec.UserID, rec.EventType
		}
		telemetry.EmitAsync(s.emitter, context.Background(), &telemetrydomain.Event{
			ID:        eventID + "-fallback",
			UserID:    userID,
			EventID:   eventID,
			EventType: eventType,
			Action:    telemetrydomain.ActionFallback,
			Channel:   string(ch),
			Source:    "scheduler",
			CreatedAt: s.nowF(),
		})
	})
}
