package auth

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserStore persists user credentials. Emails are normalized (lower-cased,
// trimmed) before every lookup and insert, so two spellings of the same
// address always land on the same row.
type UserStore interface {
	FindByEmail(email string) (User, error)
	FindByID(id int) (User, error)
	// Create registers a new user with RoleUser. The store's uniqueness
	// guarantee is the authority on duplicates: a concurrent registration
	// losing the race gets ErrDuplicateEmail, never a silent overwrite.
	Create(email, passwordHash, name string) (User, error)
	// SetRole is a store-level administrative action, used only to seed the
	// bootstrap admin. Registration never sets a role other than RoleUser.
	SetRole(email string, role Role) error
}

// NormalizeEmail is the single place emails are canonicalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type InMemoryUserStore struct {
	mu     sync.RWMutex
	byMail map[string]User
	nextID int
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{byMail: make(map[string]User), nextID: 1}
}

func (s *InMemoryUserStore) FindByEmail(email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byMail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) FindByID(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byMail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *InMemoryUserStore) Create(email, passwordHash, name string) (User, error) {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byMail[email]; ok {
		return User{}, ErrDuplicateEmail
	}
	u := User{
		ID:           s.nextID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.byMail[email] = u
	return u, nil
}

func (s *InMemoryUserStore) SetRole(email string, role Role) error {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byMail[email]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	s.byMail[email] = u
	return nil
}
