// Package bindcode generates and checks the short-lived verification codes
// handed out with SMS_BINDING login challenges. Codes are stored hashed, in
// memory, keyed by the binding event id.
package bindcode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

const codeDigits = 6

// Generate returns a 6-digit numeric binding code (e.g. "123456").
// Uses crypto/rand for randomness.
func Generate() (string, error) {
	b := make([]byte, codeDigits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// Hash returns a SHA-256 hash of the code, hex-encoded.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Store holds hashed binding codes by event id.
type Store interface {
	// Put stores the hash of code for eventID until expiresAt.
	Put(ctx context.Context, eventID, code string, expiresAt time.Time)
	// Verify reports whether code matches the stored, unexpired code for
	// eventID. Comparison is constant-time.
	Verify(ctx context.Context, eventID, code string) bool
}

type entry struct {
	hash      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory binding-code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores the hash of code for eventID until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, eventID, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[eventID] = entry{hash: Hash(code), expiresAt: expiresAt}
}

// Verify checks code against the stored hash for eventID. Expired entries are
// removed on the way out.
func (s *MemoryStore) Verify(ctx context.Context, eventID, code string) bool {
	s.mu.RLock()
	e, ok := s.m[eventID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, eventID)
		s.mu.Unlock()
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(code)), []byte(e.hash)) == 1
}
