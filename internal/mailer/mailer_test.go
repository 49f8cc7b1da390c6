package mailer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendReminder(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", WithAPIURL(server.URL))

	deadline := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := client.SendReminder("alice@example.com", "Acme Corp", deadline); err != nil {
		t.Fatalf("send reminder: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Reminder: Application Deadline for Acme Corp" {
		t.Errorf("Subject = %q, want reminder subject", received.Subject)
	}
	if !strings.Contains(received.TextBody, "Acme Corp") {
		t.Errorf("text body missing company name: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "2025") {
		t.Errorf("text body missing deadline: %q", received.TextBody)
	}
}

func TestSendReminderNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com")

	err := client.SendReminder("alice@example.com", "Acme Corp", time.Now())
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendReminderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", WithAPIURL(server.URL))

	err := client.SendReminder("alice@example.com", "Acme Corp", time.Now())
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@example.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@example.com").Configured() {
		t.Error("token missing: expected Configured() = false")
	}
	// A token without a From address would authenticate and then have
	// every send rejected, so it must not count as configured.
	if NewClient("token", "").Configured() {
		t.Error("from address missing: expected Configured() = false")
	}
	if NewClient("", "").Configured() {
		t.Error("nothing set: expected Configured() = false")
	}
}

func TestSendReminderMissingFromAddress(t *testing.T) {
	client := NewClient("token", "")

	err := client.SendReminder("alice@example.com", "Acme Corp", time.Now())
	if err == nil {
		t.Fatal("expected error without a from address")
	}
}
