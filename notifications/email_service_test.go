package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestService(t *testing.T, status int, seen *brevoPayload, apiKey *string) *BrevoService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"messageId":"m1"}`))
	}))
	t.Cleanup(srv.Close)

	s := NewBrevoService("key-123", "hello@stuplan.app", "StuPlan", nil)
	s.endpoint = srv.URL
	return s
}

func TestNewBrevoServiceUnconfigured(t *testing.T) {
	if s := NewBrevoService("", "a@b.c", "x", nil); s != nil {
		t.Error("expected nil service without an api key")
	}
	var s *BrevoService
	s.SendWelcome("Ada", "ada@example.com")
}

func TestSendBuildsBrevoPayload(t *testing.T) {
	var seen brevoPayload
	var apiKey string
	s := newTestService(t, http.StatusCreated, &seen, &apiKey)

	if err := s.send("ada@example.com", "", "Hello", "<p>x</p>"); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if apiKey != "key-123" {
		t.Errorf("api-key header = %q", apiKey)
	}
	if seen.To[0]["name"] != "ada" || seen.To[0]["email"] != "ada@example.com" {
		t.Errorf("recipient = %v", seen.To)
	}
	if seen.Sender["email"] != "hello@stuplan.app" || seen.Subject != "Hello" {
		t.Errorf("payload = %+v", seen)
	}
}

func TestSendRejectsBadRecipientAndStatus(t *testing.T) {
	var seen brevoPayload
	var apiKey string
	s := newTestService(t, http.StatusBadRequest, &seen, &apiKey)

	if err := s.send("not-an-email", "", "x", "y"); err == nil {
		t.Error("expected error for recipient without @")
	}
	err := s.send("ada@example.com", "Ada", "x", "y")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("send() error = %v", err)
	}
}

func TestSendWelcomeEscapesName(t *testing.T) {
	var seen brevoPayload
	var apiKey string
	s := newTestService(t, http.StatusCreated, &seen, &apiKey)

	s.SendWelcome("<b>Ada</b>", "ada@example.com")
	if strings.Contains(seen.HTMLContent, "<b>Ada</b>") || !strings.Contains(seen.HTMLContent, "&lt;b&gt;Ada&lt;/b&gt;") {
		t.Errorf("content = %q", seen.HTMLContent)
	}
}
