package model

import "time"

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderAbandoned ReminderStatus = "abandoned"
)

// Reminder is a scheduled deadline-reminder email. CompanyID is a plain
// reference, not a foreign key: a reminder outlives its company so the
// scheduler can observe the dangling reference and mark it failed.
type Reminder struct {
	ID        int64          `json:"id"`
	CompanyID int64          `json:"company_id"`
	Recipient string         `json:"recipient"`
	SendTime  time.Time      `json:"send_time"`
	Status    ReminderStatus `json:"status"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ReminderSendTime derives when a reminder should fire from the
// application deadline. The result is fixed at reminder creation; it is
// only recomputed when the deadline itself is edited.
func ReminderSendTime(deadline time.Time, lead time.Duration) time.Time {
	return deadline.Add(-lead)
}
