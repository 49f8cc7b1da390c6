package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/trackerpro/trackerpro/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.Create("Alice_99", "hashed")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Handle != "alice_99" {
		t.Errorf("handle = %q, want lowercased %q", u.Handle, "alice_99")
	}
	if u.PasswordHash != "hashed" {
		t.Errorf("password hash = %q, want %q", u.PasswordHash, "hashed")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.LastLogin != nil {
		t.Error("expected nil last login for new user")
	}
}

func TestUserCreateDuplicateHandle(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice", "h1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("ALICE", "h2"); err == nil {
		t.Fatal("expected error for case-insensitive duplicate handle, got nil")
	}
}

func TestUserGetByHandle(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	created, err := us.Create("alice", "hashed")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := us.GetByHandle("Alice")
	if err != nil {
		t.Fatalf("get by handle: %v", err)
	}
	if u == nil {
		t.Fatal("expected user for case-insensitive lookup, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}
}

func TestUserGetByHandleNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByHandle("nobody")
	if err != nil {
		t.Fatalf("get by handle: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent handle")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserTouchLastLogin(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	created, err := us.Create("alice", "hashed")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := us.TouchLastLogin(created.ID, at); err != nil {
		t.Fatalf("touch last login: %v", err)
	}

	u, err := us.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u.LastLogin == nil {
		t.Fatal("expected last login to be set")
	}
	if !u.LastLogin.Equal(at) {
		t.Errorf("last login = %v, want %v", u.LastLogin, at)
	}
}
