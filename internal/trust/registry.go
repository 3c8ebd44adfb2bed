// Package trust tracks the single bound (trusted) device per user. Binding is
// last-writer-wins: completing a binding replaces any prior device.
package trust

import "sync"

// Registry is the device-trust lookup consumed by the login path.
type Registry interface {
	// IsTrusted reports whether deviceID is the user's currently bound device.
	IsTrusted(userID, deviceID string) bool
	// Bind makes deviceID the user's bound device and returns the previous
	// one ("" when the user had none). Unconditional; last writer wins.
	Bind(userID, deviceID string) (old string)
}

// MemoryRegistry is an in-memory Registry implementation.
type MemoryRegistry struct {
	mu    sync.RWMutex
	bound map[string]string // user id -> bound device id
}

// NewMemoryRegistry returns an empty in-memory trust registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{bound: make(map[string]string)}
}

// IsTrusted reports whether deviceID is userID's bound device.
func (r *MemoryRegistry) IsTrusted(userID, deviceID string) bool {
	if userID == "" || deviceID == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bound[userID] == deviceID
}

// Bind replaces userID's bound device with deviceID and returns the old one.
func (r *MemoryRegistry) Bind(userID, deviceID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.bound[userID]
	r.bound[userID] = deviceID
	return old
}
