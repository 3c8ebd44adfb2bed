package trust

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryRegistry_UnknownUserIsUntrusted(t *testing.T) {
	r := NewMemoryRegistry()
	if r.IsTrusted("demo_user", "device_999") {
		t.Error("unknown user should not be trusted")
	}
}

func TestMemoryRegistry_BindThenTrusted(t *testing.T) {
	r := NewMemoryRegistry()

	old := r.Bind("demo_user", "device_888")
	if old != "" {
		t.Errorf("first Bind returned old = %q, want empty", old)
	}
	if !r.IsTrusted("demo_user", "device_888") {
		t.Error("bound device should be trusted")
	}
	if r.IsTrusted("demo_user", "device_999") {
		t.Error("unbound device should not be trusted")
	}
}

func TestMemoryRegistry_RebindReplacesDevice(t *testing.T) {
	r := NewMemoryRegistry()
	r.Bind("demo_user", "device_888")

	old := r.Bind("demo_user", "device_999")
	if old != "device_888" {
		t.Errorf("Bind returned old = %q, want device_888", old)
	}
	if r.IsTrusted("demo_user", "device_888") {
		t.Error("replaced device must no longer be trusted")
	}
	if !r.IsTrusted("demo_user", "device_999") {
		t.Error("new device should be trusted")
	}
}

func TestMemoryRegistry_EmptyIDsNeverTrusted(t *testing.T) {
	r := NewMemoryRegistry()
	if r.IsTrusted("", "") {
		t.Error("empty ids must not be trusted")
	}
}

func TestMemoryRegistry_ConcurrentAccess(t *testing.T) {
	r := NewMemoryRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Bind(fmt.Sprintf("user-%d", i), "device-1")
		}(i)
		go func(i int) {
			defer wg.Done()
			r.IsTrusted(fmt.Sprintf("user-%d", i), "device-1")
		}(i)
	}
	wg.Wait()
}
