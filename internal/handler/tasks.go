package handler

import (
	"log/slog"
	"net/http"

	"github.com/trackerpro/trackerpro/internal/scheduler"
)

// TaskHandler exposes the batch cycle over HTTP so an external cron (or
// an operator) can trigger it on deployments without a resident
// scheduler. Guarded by a shared secret rather than a user token.
type TaskHandler struct {
	sched      *scheduler.Scheduler
	cronSecret string
	logger     *slog.Logger
}

func NewTaskHandler(sched *scheduler.Scheduler, cronSecret string, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{sched: sched, cronSecret: cronSecret, logger: logger}
}

// SendScheduledEmails runs exactly one batch cycle and reports the counts.
func (h *TaskHandler) SendScheduledEmails(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		// Endpoint disabled unless a secret is configured.
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("X-Cron-Secret") != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid cron secret"})
		return
	}
	if h.sched == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "email transport not configured"})
		return
	}

	result, err := h.sched.RunCycle(r.Context())
	if err != nil {
		h.logger.Error("triggered batch cycle", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
