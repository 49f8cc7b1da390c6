package model

import "time"

// Company is one tracked job application.
type Company struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	Location      string     `json:"location"`
	Compensation  string     `json:"compensation"`
	Deadline      time.Time  `json:"deadline"`
	OADate        *time.Time `json:"oa_date"`
	OAMode        string     `json:"oa_mode"`
	InterviewDate *time.Time `json:"interview_date"`
	InterviewMode string     `json:"interview_mode"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultDeadline returns the fallback application deadline when none is
// supplied at creation: 23:59:59.999 at the end of the creation day.
func DefaultDeadline(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, 999e6, now.Location())
}
