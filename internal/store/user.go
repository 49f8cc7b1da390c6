package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trackerpro/trackerpro/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var lastLogin sql.NullTime

	err := scanner.Scan(&u.ID, &u.Handle, &u.PasswordHash, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

const userCols = `id, handle, password_hash, last_login, created_at, updated_at`

// Create inserts a new user. The handle is stored lowercased; the column
// collates case-insensitively, so "Alice" and "alice" collide.
func (s *UserStore) Create(handle, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (handle, password_hash) VALUES (?, ?)`,
		strings.ToLower(handle), passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByHandle(handle string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE handle = ?`, strings.ToLower(handle))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by handle: %w", err)
	}
	return u, nil
}

// TouchLastLogin records a successful login.
func (s *UserStore) TouchLastLogin(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET last_login = ?, updated_at = datetime('now') WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
