package auth

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileUserStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := NewFileUserStore(path)
	if err != nil {
		t.Fatalf("NewFileUserStore() error: %v", err)
	}

	created, err := store.Create("alice@example.com", "hash", "Alice")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.SetRole("alice@example.com", RoleAdmin); err != nil {
		t.Fatalf("SetRole() error: %v", err)
	}

	reopened, err := NewFileUserStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	u, err := reopened.FindByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() after reopen: %v", err)
	}
	if u.ID != created.ID || u.Role != RoleAdmin || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user after reopen: %+v", u)
	}

	// IDs keep counting from where the loaded state left off.
	second, err := reopened.Create("bob@example.com", "hash2", "Bob")
	if err != nil {
		t.Fatalf("Create() after reopen: %v", err)
	}
	if second.ID != created.ID+1 {
		t.Fatalf("expected id %d, got %d", created.ID+1, second.ID)
	}
}

func TestFileUserStoreDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := NewFileUserStore(path)
	if err != nil {
		t.Fatalf("NewFileUserStore() error: %v", err)
	}
	if _, err := store.Create("alice@example.com", "hash", "Alice"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := store.Create("ALICE@example.com", "hash2", "Other"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestFileUserStoreFindByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := NewFileUserStore(path)
	if err != nil {
		t.Fatalf("NewFileUserStore() error: %v", err)
	}
	created, err := store.Create("alice@example.com", "hash", "Alice")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	u, err := store.FindByID(created.ID)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := store.FindByID(999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
