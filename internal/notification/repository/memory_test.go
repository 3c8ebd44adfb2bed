package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"notifyd/internal/notification/domain"
)

func newRecord(eventID, userID string) *domain.Record {
	return &domain.Record{
		EventID:       eventID,
		UserID:        userID,
		EventType:     "LOGIN_OTP",
		ChosenChannel: domain.ChannelPush,
		SentTS:        time.Now().UTC(),
		Logs:          []domain.LogEntry{{Timestamp: time.Now().UTC(), Message: "dispatched"}},
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()

	if !repo.Create(newRecord("evt-1", "user-1")) {
		t.Fatal("Create should succeed for a new event id")
	}
	rec, ok := repo.Get("evt-1")
	if !ok {
		t.Fatal("Get should find the created record")
	}
	if rec.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", rec.UserID, "user-1")
	}
	if len(rec.Logs) != 1 {
		t.Errorf("Logs length = %d, want 1", len(rec.Logs))
	}
}

func TestMemoryRepository_CreateRejectsDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	if repo.Create(newRecord("evt-1", "user-2")) {
		t.Error("Create should reject a duplicate event id")
	}
	rec, _ := repo.Get("evt-1")
	if rec.UserID != "user-1" {
		t.Errorf("duplicate Create mutated record: UserID = %q", rec.UserID)
	}
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	rec, _ := repo.Get("evt-1")
	rec.Logs = append(rec.Logs, domain.LogEntry{Message: "tampered"})
	rec.FallbackTriggered = true

	fresh, _ := repo.Get("evt-1")
	if len(fresh.Logs) != 1 {
		t.Errorf("stored record logs mutated through Get copy: %d entries", len(fresh.Logs))
	}
	if fresh.FallbackTriggered {
		t.Error("stored record mutated through Get copy")
	}
}

func TestMemoryRepository_AppendLog(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	repo.AppendLog("evt-1", "second entry")
	rec, _ := repo.Get("evt-1")
	if len(rec.Logs) != 2 {
		t.Fatalf("Logs length = %d, want 2", len(rec.Logs))
	}
	if rec.Logs[1].Message != "second entry" {
		t.Errorf("Logs[1].Message = %q", rec.Logs[1].Message)
	}

	// Unknown id must not panic or error.
	repo.AppendLog("nonexistent", "ignored")
}

func TestMemoryRepository_SetAckIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	first := time.Now().UTC()
	if !repo.SetAck("evt-1", domain.ChannelPush, first) {
		t.Fatal("first SetAck should apply")
	}
	if repo.SetAck("evt-1", domain.ChannelSMS, first.Add(time.Minute)) {
		t.Error("second SetAck should be a no-op")
	}
	rec, _ := repo.Get("evt-1")
	if rec.AckTS == nil || !rec.AckTS.Equal(first) {
		t.Errorf("AckTS = %v, want %v", rec.AckTS, first)
	}
	if rec.AckChannel != domain.ChannelPush {
		t.Errorf("AckChannel = %q, want PUSH", rec.AckChannel)
	}
}

func TestMemoryRepository_SetAckUnknownID(t *testing.T) {
	repo := NewMemoryRepository()
	if repo.SetAck("nonexistent", domain.ChannelPush, time.Now().UTC()) {
		t.Error("SetAck on unknown id should return false")
	}
}

func TestMemoryRepository_SetFallback(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	now := time.Now().UTC()
	if !repo.SetFallback("evt-1", domain.ChannelSMS, now) {
		t.Fatal("SetFallback should apply on an unacked record")
	}
	rec, _ := repo.Get("evt-1")
	if !rec.FallbackTriggered {
		t.Error("FallbackTriggered should be true")
	}
	if rec.FallbackChannel == nil || *rec.FallbackChannel != domain.ChannelSMS {
		t.Errorf("FallbackChannel = %v, want SMS", rec.FallbackChannel)
	}
	if len(rec.Logs) != 2 {
		t.Errorf("fallback should append a log entry, got %d entries", len(rec.Logs))
	}

	// Fires at most once.
	if repo.SetFallback("evt-1", domain.ChannelWhatsApp, now) {
		t.Error("second SetFallback should be a no-op")
	}
}

func TestMemoryRepository_AckBlocksFallback(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	repo.SetAck("evt-1", domain.ChannelPush, time.Now().UTC())
	if repo.SetFallback("evt-1", domain.ChannelSMS, time.Now().UTC()) {
		t.Error("SetFallback must not apply after an ack")
	}
	rec, _ := repo.Get("evt-1")
	if rec.FallbackTriggered {
		t.Error("FallbackTriggered should remain false after ack")
	}
}

func TestMemoryRepository_FallbackDoesNotBlockAck(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "user-1"))

	repo.SetFallback("evt-1", domain.ChannelSMS, time.Now().UTC())
	// A late ack on the fallback channel still lands.
	if !repo.SetAck("evt-1", domain.ChannelSMS, time.Now().UTC()) {
		t.Error("SetAck should still apply after fallback")
	}
}

func TestMemoryRepository_AckFallbackRace(t *testing.T) {
	// Exactly one of ack/fallback may win when both fire near-simultaneously.
	for i := 0; i < 100; i++ {
		repo := NewMemoryRepository()
		id := fmt.Sprintf("evt-%d", i)
		repo.Create(newRecord(id, "user-1"))

		var wg sync.WaitGroup
		var ackWon, fbWon bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			ackWon = repo.SetAck(id, domain.ChannelPush, time.Now().UTC())
		}()
		go func() {
			defer wg.Done()
			fbWon = repo.SetFallback(id, domain.ChannelSMS, time.Now().UTC())
		}()
		wg.Wait()

		rec, _ := repo.Get(id)
		// The lone acker always lands: either first (blocking fallback
		// forever) or late on an already-escalated record.
		if !ackWon || rec.AckTS == nil {
			t.Fatal("ack did not land")
		}
		if rec.FallbackTriggered != fbWon {
			t.Fatalf("FallbackTriggered = %v but SetFallback returned %v", rec.FallbackTriggered, fbWon)
		}
		if !fbWon && rec.FallbackChannel != nil {
			t.Fatal("fallback lost the race but still wrote a channel")
		}
	}
}

func TestMemoryRepository_ListRecent(t *testing.T) {
	repo := NewMemoryRepository()
	for i := 1; i <= 5; i++ {
		repo.Create(newRecord(fmt.Sprintf("evt-%d", i), "user-1"))
	}

	recent := repo.ListRecent(3)
	if len(recent) != 3 {
		t.Fatalf("ListRecent(3) returned %d records", len(recent))
	}
	want := []string{"evt-5", "evt-4", "evt-3"}
	for i, rec := range recent {
		if rec.EventID != want[i] {
			t.Errorf("recent[%d] = %q, want %q", i, rec.EventID, want[i])
		}
	}

	all := repo.ListRecent(0)
	if len(all) != 5 {
		t.Errorf("ListRecent(0) returned %d records, want all 5", len(all))
	}
}

func TestMemoryRepository_ListForUser(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create(newRecord("evt-1", "alice"))
	repo.Create(newRecord("evt-2", "bob"))
	repo.Create(newRecord("evt-3", "alice"))

	got := repo.ListForUser("alice")
	if len(got) != 2 {
		t.Fatalf("ListForUser returned %d records, want 2", len(got))
	}
	if got[0].EventID != "evt-3" || got[1].EventID != "evt-1" {
		t.Errorf("order = [%s %s], want newest first [evt-3 evt-1]", got[0].EventID, got[1].EventID)
	}

	seen := map[string]bool{}
	for _, rec := range got {
		if seen[rec.EventID] {
			t.Errorf("duplicate event id %q in ListForUser", rec.EventID)
		}
		seen[rec.EventID] = true
	}

	if n := len(repo.ListForUser("nobody")); n != 0 {
		t.Errorf("ListForUser for unknown user returned %d records", n)
	}
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("evt-%d", i)
			repo.Create(newRecord(id, "user-1"))
			repo.AppendLog(id, "extra")
			repo.Get(id)
			repo.ListRecent(10)
			repo.ListForUser("user-1")
		}(i)
	}
	wg.Wait()

	if n := len(repo.ListRecent(0)); n != 20 {
		t.Errorf("expected 20 records, got %d", n)
	}
}
