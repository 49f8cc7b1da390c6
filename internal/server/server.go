package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/trackerpro/trackerpro/internal/auth"
	"github.com/trackerpro/trackerpro/internal/config"
	"github.com/trackerpro/trackerpro/internal/handler"
	"github.com/trackerpro/trackerpro/internal/mailer"
	"github.com/trackerpro/trackerpro/internal/middleware"
	"github.com/trackerpro/trackerpro/internal/scheduler"
	"github.com/trackerpro/trackerpro/internal/store"
	ws "github.com/trackerpro/trackerpro/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	tokens      *auth.Tokens
	authH       *handler.AuthHandler
	companyH    *handler.CompanyHandler
	taskH       *handler.TaskHandler
	sched       *scheduler.Scheduler
	rateLimiter *middleware.RateLimiter
	wsOrigins   []string
	logger      *slog.Logger
}

// Credential endpoints get this many attempts per client IP per window.
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	companyStore := store.NewCompanyStore(db)
	reminderStore := store.NewReminderStore(db)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	mail := mailer.NewClient(cfg.PostmarkToken, cfg.FromEmail)

	// Without mail credentials the reminder pipeline stays off; the
	// CRUD API still works and reminders queue up untouched.
	var sched *scheduler.Scheduler
	if mail.Configured() {
		sched = scheduler.New(reminderStore, companyStore, mail, hub, scheduler.Config{
			Interval:    cfg.Interval,
			BatchSize:   cfg.BatchSize,
			MaxAttempts: cfg.MaxAttempts,
		}, logger.With("component", "scheduler"))
	}

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		companyH:    handler.NewCompanyHandler(companyStore, reminderStore, mail, hub, cfg.ReminderLead, logger.With("component", "company")),
		taskH:       handler.NewTaskHandler(sched, cfg.CronSecret, logger.With("component", "tasks")),
		sched:       sched,
		rateLimiter: middleware.NewRateLimiter(loginRateLimit, loginRateWindow),
		wsOrigins:   cfg.WSOrigins,
		logger:      logger,
	}
}

// Scheduler returns the reminder scheduler, or nil when the email
// transport is not configured.
func (s *Server) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /tasks/send-scheduled-emails", s.taskH.SendScheduledEmails)
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.tokens, s.wsOrigins, s.logger.With("component", "websocket")))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind bearer-token auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	chain := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(chain)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", s.authH.Me)

	mux.HandleFunc("POST /api/companies", s.companyH.Create)
	mux.HandleFunc("GET /api/companies", s.companyH.List)
	mux.HandleFunc("GET /api/companies/{id}", s.companyH.Get)
	mux.HandleFunc("PUT /api/companies/{id}", s.companyH.Update)
	mux.HandleFunc("DELETE /api/companies/{id}", s.companyH.Delete)

	mux.HandleFunc("POST /api/companies/{id}/reminders", s.companyH.ScheduleReminder)
	mux.HandleFunc("GET /api/companies/{id}/reminders", s.companyH.ListReminders)
	mux.HandleFunc("POST /api/companies/{id}/notify", s.companyH.Notify)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
