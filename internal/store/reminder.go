package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trackerpro/trackerpro/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func scanReminder(scanner interface{ Scan(...any) error }) (*model.Reminder, error) {
	var r model.Reminder
	err := scanner.Scan(
		&r.ID, &r.CompanyID, &r.Recipient, &r.SendTime, &r.Status, &r.Attempts,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const reminderCols = `id, company_id, recipient, send_time, status, attempts, created_at, updated_at`

func (s *ReminderStore) Create(companyID int64, recipient string, sendTime time.Time) (*model.Reminder, error) {
	result, err := s.db.Exec(
		`INSERT INTO scheduled_reminders (company_id, recipient, send_time) VALUES (?, ?, ?)`,
		companyID, recipient, sendTime.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReminderStore) GetByID(id int64) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM scheduled_reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderStore) ListByCompany(companyID int64) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM scheduled_reminders WHERE company_id = ? ORDER BY send_time ASC, id ASC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// ListDue returns at most limit pending reminders whose send time has
// passed, most overdue first.
func (s *ReminderStore) ListDue(now time.Time, limit int) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM scheduled_reminders
		 WHERE status = ? AND send_time <= ?
		 ORDER BY send_time ASC, id ASC LIMIT ?`,
		model.ReminderPending, now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// SetStatus persists a status transition. It is a no-op, not an error,
// when the row was concurrently deleted.
func (s *ReminderStore) SetStatus(id int64, status model.ReminderStatus) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_reminders SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set reminder status: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the transport-failure counter and returns the
// new value, leaving status pending so the next cycle retries.
func (s *ReminderStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(
		`UPDATE scheduled_reminders SET attempts = attempts + 1, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var attempts int
	err = s.db.QueryRow(`SELECT attempts FROM scheduled_reminders WHERE id = ?`, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

// RescheduleForCompany re-derives the send time of a company's pending
// reminders after a deadline edit. Sent, failed, and abandoned reminders
// are left untouched; the attempt counter starts over.
func (s *ReminderStore) RescheduleForCompany(companyID int64, sendTime time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE scheduled_reminders SET send_time = ?, attempts = 0, updated_at = datetime('now')
		 WHERE company_id = ? AND status = ?`,
		sendTime.UTC(), companyID, model.ReminderPending,
	)
	if err != nil {
		return 0, fmt.Errorf("reschedule reminders: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
