package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fileUser is the on-disk shape. The password hash has to round-trip here
// even though User hides it from JSON everywhere else.
type fileUser struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileUserStore keeps users in a JSON file. It backs deployments without a
// DATABASE_URL; uniqueness is enforced by the in-process map under the lock.
type FileUserStore struct {
	path string

	mu     sync.RWMutex
	byMail map[string]User
	nextID int
}

func NewFileUserStore(path string) (*FileUserStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("user state file path is required")
	}

	s := &FileUserStore{
		path:   path,
		byMail: make(map[string]User),
		nextID: 1,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileUserStore) FindByEmail(email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byMail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *FileUserStore) FindByID(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byMail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *FileUserStore) Create(email, passwordHash, name string) (User, error) {
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
	s.byMail[email] = u
	s.nextID++
	if err := s.persistLocked(); err != nil {
		delete(s.byMail, email)
		s.nextID--
		return User{}, err
	}
	return u, nil
}

func (s *FileUserStore) SetRole(email string, role Role) error {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byMail[email]
	if !ok {
		return ErrUserNotFound
	}
	prev := u.Role
	u.Role = role
	s.byMail[email] = u
	if err := s.persistLocked(); err != nil {
		u.Role = prev
		s.byMail[email] = u
		return err
	}
	return nil
}

func (s *FileUserStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read user store file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var decoded []fileUser
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode user store file: %w", err)
	}
	for _, fu := range decoded {
		email := NormalizeEmail(fu.Email)
		if email == "" {
			continue
		}
		s.byMail[email] = User{
			ID:           fu.ID,
			Email:        email,
			Name:         fu.Name,
			PasswordHash: fu.PasswordHash,
			Role:         ParseRole(string(fu.Role)),
			CreatedAt:    fu.CreatedAt,
		}
		if fu.ID >= s.nextID {
			s.nextID = fu.ID + 1
		}
	}
	return nil
}

func (s *FileUserStore) persistLocked() error {
	out := make([]fileUser, 0, len(s.byMail))
	for _, u := range s.byMail {
		out = append(out, fileUser{
			ID:           u.ID,
			Email:        u.Email,
			Name:         u.Name,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			CreatedAt:    u.CreatedAt,
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user store file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir user store dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write user store file: %w", err)
	}
	return nil
}
