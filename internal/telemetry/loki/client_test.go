package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func capturePush(t *testing.T) (*httptest.Server, *PushRequest) {
	t.Helper()
	captured := &PushRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/loki/api/v1/push") {
			t.Errorf("path = %q, want .../loki/api/v1/push", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, captured); err != nil {
			t.Fatalf("unmarshal push body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return server, captured
}

func TestPushEvent_LabelsAndLine(t *testing.T) {
	server, captured := capturePush(t)
	defer server.Close()

	ts := time.Now().UTC()
	err := PushEvent(context.Background(), server.URL, ts, "hello", map[string]string{"action": "dispatch"})
	if err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	if len(captured.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(captured.Streams))
	}
	stream := captured.Streams[0]
	if stream.Stream["job"] != "notifyd" {
		t.Errorf("job label = %q, want notifyd", stream.Stream["job"])
	}
	if stream.Stream["action"] != "dispatch" {
		t.Errorf("action label = %q, want dispatch", stream.Stream["action"])
	}
	if len(stream.Values) != 1 || stream.Values[0][1] != "hello" {
		t.Errorf("values = %v, want one entry with line \"hello\"", stream.Values)
	}
}

func TestPushEvent_SanitizesLabels(t *testing.T) {
	server, captured := capturePush(t)
	defer server.Close()

	err := PushEvent(context.Background(), server.URL, time.Now().UTC(), "line",
		map[string]string{"user_id": "user one!"})
	if err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	if got := captured.Streams[0].Stream["user_id"]; got != "user_one_" {
		t.Errorf("sanitized label = %q, want %q", got, "user_one_")
	}
}

func TestPushEvent_EmptyBaseURL(t *testing.T) {
	err := PushEvent(context.Background(), "", time.Now(), "line", nil)
	if err == nil {
		t.Error("PushEvent should fail with empty base URL")
	}
}

func TestPushEventJSON_ExtractsFields(t *testing.T) {
	server, captured := capturePush(t)
	defer server.Close()

	raw := []byte(`{"userId":"user-1","eventType":"LOGIN_OTP","action":"fallback","source":"scheduler","createdAt":"2026-08-23T10:00:00Z"}`)
	if err := PushEventJSON(context.Background(), server.URL, raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	stream := captured.Streams[0]
	if stream.Stream["event_type"] != "LOGIN_OTP" || stream.Stream["action"] != "fallback" {
		t.Errorf("labels = %v", stream.Stream)
	}
	wantNS := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC).UnixNano()
	if stream.Values[0][0] != strconv.FormatInt(wantNS, 10) {
		t.Errorf("timestamp = %s, want %d", stream.Values[0][0], wantNS)
	}
}

func TestPushEventJSON_MalformedFallsBackToRawLine(t *testing.T) {
	server, captured := capturePush(t)
	defer server.Close()

	if err := PushEventJSON(context.Background(), server.URL, []byte("not-json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if captured.Streams[0].Values[0][1] != "not-json" {
		t.Errorf("line = %q, want raw input", captured.Streams[0].Values[0][1])
	}
}

func TestPushEvent_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := PushEvent(context.Background(), server.URL, time.Now(), "line", nil); err == nil {
		t.Error("PushEvent should surface non-2xx responses")
	}
}
