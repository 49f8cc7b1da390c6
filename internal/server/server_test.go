package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trackerpro/trackerpro/internal/config"
	"github.com/trackerpro/trackerpro/internal/database"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
		ReminderLead: time.Hour,
		CronSecret:   "cron-secret",
	}
	srv := New(db, cfg, slog.Default())
	return srv.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, router http.Handler, handle string) string {
	t.Helper()
	rec := doJSON(t, router, "POST", "/signup", "", map[string]string{"handle": handle, "password": "hunter22"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal signup response: %v", err)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	router := setupServer(t)

	rec := doJSON(t, router, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID on every response")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := setupServer(t)

	for _, path := range []string{"/api/me", "/api/companies"} {
		rec := doJSON(t, router, "GET", path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestSignupLoginFlow(t *testing.T) {
	router := setupServer(t)

	token := signup(t, router, "alice")

	rec := doJSON(t, router, "GET", "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, "POST", "/login", "", map[string]string{"handle": "alice", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Errorf("login: status = %d: %s", rec.Code, rec.Body)
	}
}

func TestCompanyReminderFlow(t *testing.T) {
	router := setupServer(t)
	token := signup(t, router, "alice")

	deadline := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	rec := doJSON(t, router, "POST", "/api/companies", token, map[string]any{
		"name":     "Acme Corp",
		"role":     "SWE",
		"deadline": deadline,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create company: status = %d: %s", rec.Code, rec.Body)
	}
	var company struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &company); err != nil {
		t.Fatalf("unmarshal company: %v", err)
	}

	rec = doJSON(t, router, "POST", "/api/companies/1/reminders", token, map[string]string{"recipient": "alice@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule reminder: status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, "GET", "/api/companies/1/reminders", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reminders: status = %d: %s", rec.Code, rec.Body)
	}

	// Another account cannot see the company.
	otherToken := signup(t, router, "mallory")
	rec = doJSON(t, router, "GET", "/api/companies/1", otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTaskEndpointUnavailableWithoutMail(t *testing.T) {
	router := setupServer(t)

	req := httptest.NewRequest("POST", "/tasks/send-scheduled-emails", nil)
	req.Header.Set("X-Cron-Secret", "cron-secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No Postmark credentials in this fixture, so no scheduler exists.
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSchedulerStaysOffWithPartialMailConfig(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Token present but no From address: every send would be rejected
	// by Postmark, so the scheduler must not run at all.
	cfg := config.Config{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		ReminderLead:  time.Hour,
		PostmarkToken: "pm-token",
		CronSecret:    "cron-secret",
	}
	srv := New(db, cfg, slog.Default())

	if srv.Scheduler() != nil {
		t.Fatal("scheduler must stay off without a from address")
	}

	req := httptest.NewRequest("POST", "/tasks/send-scheduled-emails", nil)
	req.Header.Set("X-Cron-Secret", "cron-secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	router := setupServer(t)

	rec := doJSON(t, router, "GET", "/ws?token=garbage", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
