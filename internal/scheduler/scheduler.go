package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/trackerpro/trackerpro/internal/model"
	"github.com/trackerpro/trackerpro/internal/store"
	"github.com/trackerpro/trackerpro/internal/websocket"
)

// Sender is the outbound email transport: one best-effort attempt, no
// built-in retry. The scheduler owns the retry policy.
type Sender interface {
	SendReminder(to, companyName string, deadline time.Time) error
}

// Config holds the knobs that were hard-coded in earlier prototypes.
type Config struct {
	Interval    time.Duration // cadence between batch cycles
	BatchSize   int           // max reminders processed per cycle
	MaxAttempts int           // transport failures before a reminder is abandoned
}

// CycleResult reports what one batch cycle did.
type CycleResult struct {
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Abandoned  int `json:"abandoned"`
	Retried    int `json:"retried"`
}

// Scheduler periodically scans for due reminders and sends them.
//
// Delivery is at-least-once: there is no lock between the send and the
// status write, so a crash in that gap can repeat a send on the next
// cycle. Status is only ever written by the scheduler, never by the
// CRUD handlers, so there is no competing writer for that field.
type Scheduler struct {
	reminders *store.ReminderStore
	companies *store.CompanyStore
	sender    Sender
	hub       *websocket.Hub
	logger    *slog.Logger
	cfg       Config

	// now is swapped out in tests to simulate time passing.
	now func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a reminder scheduler. hub may be nil.
func New(reminders *store.ReminderStore, companies *store.CompanyStore, sender Sender, hub *websocket.Hub, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Scheduler{
		reminders: reminders,
		companies: companies,
		sender:    sender,
		hub:       hub,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start begins the recurring batch cycle. Cycles are independent; a
// failed cycle only logs, and the next one proceeds from persisted state.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.Interval), func() {
		result, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.Error("batch cycle", "error", err)
		}
		if result.Considered > 0 {
			s.logger.Info("batch cycle complete",
				"considered", result.Considered,
				"sent", result.Sent,
				"failed", result.Failed,
				"abandoned", result.Abandoned,
				"retried", result.Retried,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule batch cycle: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder scheduler started", "interval", s.cfg.Interval, "batch_size", s.cfg.BatchSize)
	return nil
}

// Stop halts the cadence and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// RunCycle executes exactly one batch cycle: query due pending reminders
// (most overdue first, capped at the batch size), resolve each to its
// company, send the email, and persist the outcome. One reminder's
// failure never aborts the rest of the batch; per-item errors are
// aggregated into the returned error.
//
// A due-query failure aborts the whole cycle before any reminder is
// touched; the next cycle retries from unchanged state.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	now := s.now().UTC()
	due, err := s.reminders.ListDue(now, s.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("list due reminders: %w", err)
	}
	if len(due) == 0 {
		s.logger.Debug("no reminders due", "now", now)
		return result, nil
	}

	result.Considered = len(due)

	var errs error
	for _, rem := range due {
		if ctx.Err() != nil {
			// Shutting down; unprocessed reminders stay pending.
			return result, multierr.Append(errs, ctx.Err())
		}

		company, err := s.companies.GetByID(rem.CompanyID)
		if err != nil {
			// Store hiccup: leave the reminder pending for the next cycle.
			s.logger.Error("resolve company", "reminder_id", rem.ID, "company_id", rem.CompanyID, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("reminder %d: resolve company: %w", rem.ID, err))
			result.Retried++
			continue
		}

		if company == nil {
			// The application is gone. Terminal: never retried.
			if err := s.reminders.SetStatus(rem.ID, model.ReminderFailed); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reminder %d: mark failed: %w", rem.ID, err))
			}
			s.logger.Warn("company missing, reminder failed", "reminder_id", rem.ID, "company_id", rem.CompanyID)
			s.broadcast("reminder", "failed", rem.ID, map[string]any{"company_id": rem.CompanyID})
			result.Failed++
			continue
		}

		if err := s.sender.SendReminder(rem.Recipient, company.Name, company.Deadline); err != nil {
			s.logger.Error("send reminder",
				"reminder_id", rem.ID,
				"recipient", rem.Recipient,
				"company", company.Name,
				"attempts", rem.Attempts+1,
				"error", err,
			)
			errs = multierr.Append(errs, fmt.Errorf("reminder %d: send to %s: %w", rem.ID, rem.Recipient, err))

			attempts, aerr := s.reminders.IncrementAttempts(rem.ID)
			if aerr != nil {
				errs = multierr.Append(errs, fmt.Errorf("reminder %d: record attempt: %w", rem.ID, aerr))
				result.Retried++
				continue
			}
			if attempts >= s.cfg.MaxAttempts {
				if serr := s.reminders.SetStatus(rem.ID, model.ReminderAbandoned); serr != nil {
					errs = multierr.Append(errs, fmt.Errorf("reminder %d: mark abandoned: %w", rem.ID, serr))
				}
				s.logger.Warn("reminder abandoned", "reminder_id", rem.ID, "recipient", rem.Recipient, "attempts", attempts)
				result.Abandoned++
			} else {
				// Still pending: the next due query picks it up again.
				result.Retried++
			}
			continue
		}

		if err := s.reminders.SetStatus(rem.ID, model.ReminderSent); err != nil {
			// The email went out but the flag didn't stick; the next cycle
			// may resend. Accepted at-least-once tradeoff.
			errs = multierr.Append(errs, fmt.Errorf("reminder %d: mark sent: %w", rem.ID, err))
		}
		s.logger.Info("reminder sent", "reminder_id", rem.ID, "recipient", rem.Recipient, "company", company.Name)
		s.broadcast("reminder", "sent", rem.ID, map[string]any{"company_id": company.ID})
		result.Sent++
	}

	return result, errs
}

func (s *Scheduler) broadcast(entity, action string, id int64, extra map[string]any) {
	if s.hub != nil {
		s.hub.Broadcast(websocket.NewMessage(entity, action, id, extra))
	}
}
