package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/trackerpro/trackerpro/internal/auth"
	"github.com/trackerpro/trackerpro/internal/model"
	"github.com/trackerpro/trackerpro/internal/store"
	"github.com/trackerpro/trackerpro/internal/websocket"
)

// Sender sends a deadline reminder email immediately.
type Sender interface {
	SendReminder(to, companyName string, deadline time.Time) error
}

type CompanyHandler struct {
	companyStore  *store.CompanyStore
	reminderStore *store.ReminderStore
	sender        Sender
	hub           *websocket.Hub
	leadTime      time.Duration
	logger        *slog.Logger
}

func NewCompanyHandler(cs *store.CompanyStore, rs *store.ReminderStore, sender Sender, hub *websocket.Hub, leadTime time.Duration, logger *slog.Logger) *CompanyHandler {
	if leadTime <= 0 {
		leadTime = time.Hour
	}
	return &CompanyHandler{
		companyStore:  cs,
		reminderStore: rs,
		sender:        sender,
		hub:           hub,
		leadTime:      leadTime,
		logger:        logger,
	}
}

func (h *CompanyHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type companyRequest struct {
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	Location      string     `json:"location"`
	Compensation  string     `json:"compensation"`
	Deadline      *time.Time `json:"deadline"`
	OADate        *time.Time `json:"oa_date"`
	OAMode        string     `json:"oa_mode"`
	InterviewDate *time.Time `json:"interview_date"`
	InterviewMode string     `json:"interview_mode"`
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	// No deadline supplied means end of the current UTC day, matching
	// how the scheduler compares send times.
	deadline := model.DefaultDeadline(time.Now().UTC())
	if req.Deadline != nil {
		deadline = *req.Deadline
	}

	company, err := h.companyStore.Create(ac.UserID, req.Name, req.Role, req.Location, req.Compensation, deadline, req.OADate, req.OAMode, req.InterviewDate, req.InterviewMode)
	if err != nil {
		h.logger.Error("create company", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create company"})
		return
	}

	h.broadcast(websocket.NewMessage("company", "created", company.ID, nil))

	writeJSON(w, http.StatusCreated, company)
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	companies, err := h.companyStore.ListByUser(ac.UserID)
	if err != nil {
		h.logger.Error("list companies", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list companies"})
		return
	}
	if companies == nil {
		companies = []model.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	deadline := existing.Deadline
	if req.Deadline != nil {
		deadline = *req.Deadline
	}

	company, err := h.companyStore.Update(existing.ID, req.Name, req.Role, req.Location, req.Compensation, deadline, req.OADate, req.OAMode, req.InterviewDate, req.InterviewMode)
	if err != nil {
		h.logger.Error("update company", "company_id", existing.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update company"})
		return
	}

	// A moved deadline shifts every reminder that has not fired yet.
	// Sent, failed, and abandoned reminders keep their history.
	if !deadline.Equal(existing.Deadline) {
		sendTime := model.ReminderSendTime(deadline, h.leadTime)
		moved, err := h.reminderStore.RescheduleForCompany(existing.ID, sendTime)
		if err != nil {
			h.logger.Error("reschedule reminders", "company_id", existing.ID, "error", err)
		} else if moved > 0 {
			h.logger.Info("reminders rescheduled", "company_id", existing.ID, "count", moved, "send_time", sendTime)
		}
	}

	h.broadcast(websocket.NewMessage("company", "updated", company.ID, nil))

	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	if err := h.companyStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete company", "company_id", existing.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete company"})
		return
	}

	h.broadcast(websocket.NewMessage("company", "deleted", existing.ID, nil))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type reminderRequest struct {
	Recipient string `json:"recipient"`
}

// ScheduleReminder queues a deadline reminder email for a company. The
// send time is derived from the company's deadline minus the lead time.
func (h *CompanyHandler) ScheduleReminder(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if _, err := mail.ParseAddress(req.Recipient); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid recipient email is required"})
		return
	}

	sendTime := model.ReminderSendTime(company.Deadline, h.leadTime)
	reminder, err := h.reminderStore.Create(company.ID, req.Recipient, sendTime)
	if err != nil {
		h.logger.Error("create reminder", "company_id", company.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to schedule reminder"})
		return
	}

	h.broadcast(websocket.NewMessage("reminder", "scheduled", reminder.ID, map[string]any{"company_id": company.ID}))

	writeJSON(w, http.StatusCreated, reminder)
}

func (h *CompanyHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	reminders, err := h.reminderStore.ListByCompany(company.ID)
	if err != nil {
		h.logger.Error("list reminders", "company_id", company.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list reminders"})
		return
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

// Notify sends a deadline reminder email right now, bypassing the queue.
func (h *CompanyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if _, err := mail.ParseAddress(req.Recipient); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid recipient email is required"})
		return
	}

	if err := h.sender.SendReminder(req.Recipient, company.Name, company.Deadline); err != nil {
		h.logger.Error("send notification", "company_id", company.ID, "recipient", req.Recipient, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to send email"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// ownedCompany loads the company from the id path parameter and checks it
// belongs to the authenticated user. A company owned by someone else is
// reported as not found rather than forbidden.
func (h *CompanyHandler) ownedCompany(w http.ResponseWriter, r *http.Request) (*model.Company, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return nil, false
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	company, err := h.companyStore.GetByID(id)
	if err != nil {
		h.logger.Error("get company", "company_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get company"})
		return nil, false
	}
	if company == nil || company.UserID != ac.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "company not found"})
		return nil, false
	}
	return company, true
}
