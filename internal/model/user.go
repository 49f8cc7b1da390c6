package model

import (
	"fmt"
	"regexp"
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	Handle       string     `json:"handle"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	MinHandleLength = 3
	MaxHandleLength = 30
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateHandle checks the signup handle rules: 3-30 characters,
// letters, digits, and underscores only. Handles are stored lowercased,
// so validation runs before normalization.
func ValidateHandle(handle string) error {
	if len(handle) < MinHandleLength {
		return fmt.Errorf("handle must be at least %d characters", MinHandleLength)
	}
	if len(handle) > MaxHandleLength {
		return fmt.Errorf("handle cannot exceed %d characters", MaxHandleLength)
	}
	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("handle can only contain letters, numbers, and underscores")
	}
	return nil
}
