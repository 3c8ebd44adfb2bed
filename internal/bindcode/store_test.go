package bindcode

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGenerate_SixDigits(t *testing.T) {
	code, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code length = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Errorf("code %q contains non-digit %q", code, c)
		}
	}
}

func TestHash_Deterministic(t *testing.T) {
	if Hash("123456") != Hash("123456") {
		t.Error("Hash should be deterministic")
	}
	if Hash("123456") == Hash("654321") {
		t.Error("different codes should hash differently")
	}
}

func TestMemoryStore_PutVerify(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "evt-1", "123456", expiresAt)

	if !store.Verify(ctx, "evt-1", "123456") {
		t.Error("Verify should accept the stored code")
	}
	if store.Verify(ctx, "evt-1", "654321") {
		t.Error("Verify should reject a wrong code")
	}
}

func TestMemoryStore_VerifyMissing(t *testing.T) {
	store := NewMemoryStore()
	if store.Verify(context.Background(), "nonexistent", "123456") {
		t.Error("Verify should reject unknown event ids")
	}
}

func TestMemoryStore_VerifyExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "evt-1", "123456", time.Now().UTC().Add(-time.Minute))

	if store.Verify(ctx, "evt-1", "123456") {
		t.Error("Verify should reject an expired code")
	}
	// Expired entry is cleaned up on first Verify.
	if store.Verify(ctx, "evt-1", "123456") {
		t.Error("Verify should keep rejecting after cleanup")
	}
}

func TestMemoryStore_OverwriteReplacesCode(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(5 * time.Minute)

	store.Put(ctx, "evt-1", "111111", expiresAt)
	store.Put(ctx, "evt-1", "222222", expiresAt)

	if store.Verify(ctx, "evt-1", "111111") {
		t.Error("old code should no longer verify")
	}
	if !store.Verify(ctx, "evt-1", "222222") {
		t.Error("latest code should verify")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Put(ctx, "evt-"+string(rune('0'+i)), "123456", expiresAt)
		}(i)
		go func(i int) {
			defer wg.Done()
			store.Verify(ctx, "evt-"+string(rune('0'+i)), "123456")
		}(i)
	}
	wg.Wait()
}
