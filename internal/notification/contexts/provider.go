// Package contexts stores the simulated per-user device/session context used
// by dispatch when the caller omits an explicit snapshot. A production system
// would source this from real device telemetry; the provider exists so demos
// and tests are deterministic.
package contexts

import (
	"sync"

	"notifyd/internal/notification/domain"
)

// Provider resolves and updates per-user context snapshots.
type Provider interface {
	// Resolve returns the effective context for userID: the explicit
	// snapshot when given, otherwise the stored simulated context (defaults
	// when the user has none).
	Resolve(userID string, explicit *domain.ContextSnapshot) domain.ContextSnapshot
	// Update merges patch into the user's stored context and returns the
	// result.
	Update(userID string, patch domain.ContextPatch) domain.ContextSnapshot
}

// MemoryProvider is an in-memory Provider. The default context is the zero
// snapshot (everything false), which routes to SMS, the safe last resort.
type MemoryProvider struct {
	mu sync.RWMutex
	m  map[string]domain.ContextSnapshot
}

// NewMemoryProvider returns an empty in-memory context provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{m: make(map[string]domain.ContextSnapshot)}
}

// Resolve returns the effective context for userID.
func (p *MemoryProvider) Resolve(userID string, explicit *domain.ContextSnapshot) domain.ContextSnapshot {
	if explicit != nil {
		return *explicit
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m[userID]
}

// Update merges patch into the stored context for userID.
func (p *MemoryProvider) Update(userID string, patch domain.ContextPatch) domain.ContextSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := patch.Apply(p.m[userID])
	p.m[userID] = snap
	return snap
}
