// Package service orchestrates the notification decision engine: it runs the
// channel selector, owns record creation through the repository, arms
// escalation, and drives the login trust decision and device binding.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"notifyd/internal/bindcode"
	"notifyd/internal/delivery"
	"notifyd/internal/notification/contexts"
	"notifyd/internal/notification/domain"
	"notifyd/internal/notification/repository"
	"notifyd/internal/notification/selector"
	"notifyd/internal/telemetry"
	telemetrydomain "notifyd/internal/telemetry/domain"
	"notifyd/internal/trust"
)

// ErrInvalidInput marks requests missing required fields. Surfaced to the
// caller, never retried.
var ErrInvalidInput = errors.New("invalid input")

// defaultListLimit caps listRecent when the caller does not pass one.
const defaultListLimit = 50

// Escalator arms the per-event fallback deadline. Satisfied by
// scheduler.Scheduler; faked in tests.
type Escalator interface {
	Arm(eventID string, fallback func() domain.Channel)
}

// Options carries the binding-flow settings from config.
type Options struct {
	// VerifyNumber is the callback number returned with SMS_BINDING challenges.
	VerifyNumber string
	// CodeTTL is how long a binding verification code stays valid.
	CodeTTL time.Duration
	// CodeReturnToClient enables dev mode: the binding code rides back in the
	// login response instead of going out-of-band.
	CodeReturnToClient bool
}

// Service is the notification engine boundary consumed by the HTTP handlers.
type Service struct {
	repo     repository.Repository
	esc      Escalator
	trust    trust.Registry
	contexts contexts.Provider
	codes    bindcode.Store
	sender   delivery.Sender
	emitter  telemetry.EventEmitter
	opts     Options

	nowF  func() time.Time
	newID func() string
}

// New wires the engine. esc, codes, sender, and emitter may be nil: escalation
// and side channels then degrade to no-ops, which tests use.
func New(repo repository.Repository, esc Escalator, reg trust.Registry, provider contexts.Provider,
	codes bindcode.Store, sender delivery.Sender, emitter telemetry.EventEmitter, opts Options) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	return &Service{
		repo:     repo,
		esc:      esc,
		trust:    reg,
		contexts: provider,
		codes:    codes,
		sender:   sender,
		emitter:  emitter,
		opts:     opts,
		nowF:     func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Dispatch selects a channel for the event, records it, hands the message to
// the delivery stub, and arms escalation for channels that need it. Returns
// immediately; it never waits on the timer.
func (s *Service) Dispatch(ctx context.Context, userID, eventType string, explicit *domain.ContextSnapshot, eventID string) (*domain.DispatchResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	if eventType == "" {
		return nil, fmt.Errorf("%w: event_type required", ErrInvalidInput)
	}
	if eventID == "" {
		eventID = s.newID()
	}

	snap := s.contexts.Resolve(userID, explicit)

	// The record stays local (channel ANALYZING) until the decision is final;
	// it is published to the store only fully formed, so no reader can ever
	// observe the transient state.
	now := s.nowF()
	rec := &domain.Record{
		EventID:       eventID,
		UserID:        userID,
		EventType:     eventType,
		ChosenChannel: domain.ChannelAnalyzing,
		SentTS:        now,
	}
	ch, rule := selector.Select(snap)
	rec.ChosenChannel = ch
	rec.Logs = []domain.LogEntry{{
		Timestamp: now,
		Message:   fmt.Sprintf("routing decision: rule %s matched -> channel %s", rule, ch),
	}}

	if !s.repo.Create(rec) {
		return nil, fmt.Errorf("%w: event_id %s already exists", ErrInvalidInput, eventID)
	}

	delivery.SendAsync(s.sender, ch, userID, fmt.Sprintf("security event %s (%s)", eventType, eventID))
	s.emit(ctx, telemetrydomain.ActionDispatch, userID, eventID, eventType, ch,
		map[string]string{"rule": rule})

	if selector.NeedsEscalation(ch) && s.esc != nil {
		s.esc.Arm(eventID, func() domain.Channel {
			return selector.Fallback(ch, snap)
		})
	}

	stored, _ := s.repo.Get(eventID)
	return &domain.DispatchResult{EventID: eventID, ChosenChannel: ch, Record: stored}, nil
}

// Acknowledge stamps the acknowledgment on the event. Idempotent: repeats and
// unknown ids are harmless no-ops, so races with external cleanup stay quiet.
// An ack that lands before the deadline makes fallback permanently impossible.
func (s *Service) Acknowledge(ctx context.Context, eventID string, ch domain.Channel) error {
	if eventID == "" {
		return fmt.Errorf("%w: event_id required", ErrInvalidInput)
	}
	if ch == "" {
		ch = domain.ChannelInApp
	}
	if s.repo.SetAck(eventID, ch, s.nowF()) {
		s.repo.AppendLog(eventID, fmt.Sprintf("acknowledged via %s", ch))
		rec, _ := s.repo.Get(eventID)
		userID, eventType := "", ""
		if rec != nil {
			userID, eventType = rec.UserID, rec.EventType
		}
		s.emit(ctx, telemetrydomain.ActionAcknowledge, userID, eventID, eventType, ch, nil)
	}
	return nil
}

// LoginAttempt runs the trust decision instead of the general cascade: a
// recognized bound device confirms in-app; an unknown device gets an
// SMS_BINDING challenge with a verification callback number and a short-lived
// code, and waits for CompleteBinding. Neither branch arms a timer.
func (s *Service) LoginAttempt(ctx context.Context, userID, deviceID string) (*domain.LoginResult, error) {
	if userID == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: user_id and device_id required", ErrInvalidInput)
	}
	eventID := s.newID()
	now := s.nowF()

	if s.trust.IsTrusted(userID, deviceID) {
		rec := &domain.Record{
			EventID:       eventID,
			UserID:        userID,
			EventType:     domain.EventTypeTrustedLogin,
			ChosenChannel: domain.ChannelInApp,
			SentTS:        now,
			Logs: []domain.LogEntry{{
				Timestamp: now,
				Message:   fmt.Sprintf("trusted device %s recognized -> channel %s", deviceID, domain.ChannelInApp),
			}},
		}
		s.repo.Create(rec)
		delivery.SendAsync(s.sender, domain.ChannelInApp, userID, "login confirmed on trusted device")
		s.emit(ctx, telemetrydomain.ActionLoginAttempt, userID, eventID, domain.EventTypeTrustedLogin,
			domain.ChannelInApp, map[string]string{"device_id": deviceID})
		return &domain.LoginResult{
			Status:  domain.LoginStatusTrusted,
			EventID: eventID,
			Channel: domain.ChannelInApp,
		}, nil
	}

	rec := &domain.Record{
		EventID:       eventID,
		UserID:        userID,
		EventType:     domain.EventTypeNewDeviceLogin,
		ChosenChannel: domain.ChannelSMSBinding,
		SentTS:        now,
		Logs: []domain.LogEntry{{
			Timestamp: now,
			Message:   fmt.Sprintf("unknown device %s -> channel %s, awaiting binding confirmation", deviceID, domain.ChannelSMSBinding),
		}},
	}
	s.repo.Create(rec)

	result := &domain.LoginResult{
		Status:       domain.LoginStatusBindingRequired,
		EventID:      eventID,
		Channel:      domain.ChannelSMSBinding,
		VerifyNumber: s.opts.VerifyNumber,
	}
	if s.codes != nil {
		code, err := bindcode.Generate()
		if err != nil {
			// Binding still proceeds without a code; the rebind itself is the
			// confirmation.
			log.Printf("service: binding code generation failed: %v", err)
		} else {
			s.codes.Put(ctx, eventID, code, now.Add(s.opts.CodeTTL))
			delivery.SendAsync(s.sender, domain.ChannelSMSBinding, userID,
				fmt.Sprintf("verification code %s for new device binding", code))
			if s.opts.CodeReturnToClient {
				result.BindingCode = code
			}
		}
	}
	s.emit(ctx, telemetrydomain.ActionLoginAttempt, userID, eventID, domain.EventTypeNewDeviceLogin,
		domain.ChannelSMSBinding, map[string]string{"device_id": deviceID})
	return result, nil
}

// CompleteBinding replaces the user's bound device, last writer wins. When the
// initiating event is known its record is acknowledged and the old->new
// transition logged. A supplied code is checked and the outcome logged, but a
// bad code does not block the rebind: the out-of-band confirmation itself is
// the authorization.
func (s *Service) CompleteBinding(ctx context.Context, userID, deviceID, eventID, code string) error {
	if userID == "" || deviceID == "" {
		return fmt.Errorf("%w: user_id and device_id required", ErrInvalidInput)
	}

	old := s.trust.Bind(userID, deviceID)

	if eventID != "" {
		if code != "" && s.codes != nil {
			if s.codes.Verify(ctx, eventID, code) {
				s.repo.AppendLog(eventID, "binding code verified")
			} else {
				s.repo.AppendLog(eventID, "binding code mismatch or expired; binding proceeds on explicit confirmation")
			}
		}
		s.repo.SetAck(eventID, domain.ChannelSMSBinding, s.nowF())
		s.repo.AppendLog(eventID, fmt.Sprintf("binding completed: device %q -> %q", old, deviceID))
	}
	s.emit(ctx, telemetrydomain.ActionCompleteBinding, userID, eventID, domain.EventTypeNewDeviceLogin,
		domain.ChannelSMSBinding, map[string]string{"old_device_id": old, "device_id": deviceID})
	return nil
}

// ListRecent returns up to limit records, newest first. limit <= 0 means 50.
func (s *Service) ListRecent(limit int) []*domain.Record {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListRecent(limit)
}

// ListForUser returns the user's records, newest first.
func (s *Service) ListForUser(userID string) ([]*domain.Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	return s.repo.ListForUser(userID), nil
}

// GetRecord returns one record by event id.
func (s *Service) GetRecord(eventID string) (*domain.Record, bool) {
	return s.repo.Get(eventID)
}

// UpdateContext merges the patch into the user's stored simulated context and
// returns the effective snapshot.
func (s *Service) UpdateContext(userID string, patch domain.ContextPatch) (domain.ContextSnapshot, error) {
	if userID == "" {
		return domain.ContextSnapshot{}, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	return s.contexts.Update(userID, patch), nil
}

func (s *Service) emit(ctx context.Context, action, userID, eventID, eventType string, ch domain.Channel, meta map[string]string) {
	if s.emitter == nil {
		return
	}
	var raw []byte
	if len(meta) > 0 {
		raw, _ = json.Marshal(meta)
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetrydomain.Event{
		ID:        s.newID(),
		UserID:    userID,
		EventID:   eventID,
		EventType: eventType,
		Action:    action,
		Channel:   string(ch),
		Source:    "service",
		Metadata:  raw,
		CreatedAt: s.nowF(),
	})
}
