package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid registration input")
)

const minPasswordLength = 6

// Service owns credential registration and verification. Session issuance is
// cookie-only (see session.go); the service never tracks logins server-side.
type Service struct {
	users UserStore
	cost  int
}

type ServiceConfig struct {
	// BcryptCost tunes the adaptive hash; zero means DefaultBcryptCost.
	BcryptCost int
}

func NewService(users UserStore, cfg ServiceConfig) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &Service{users: users, cost: cost}, nil
}

// Register creates a user with a freshly hashed password. The existence
// check before the insert is advisory: under a registration race the store's
// uniqueness constraint is what rejects the loser, and that rejection also
// surfaces as ErrDuplicateEmail.
func (s *Service) Register(email, password, name string) (User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || password == "" || name == "" {
		return User{}, fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}

	if _, err := s.users.FindByEmail(email); err == nil {
		return User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return User{}, err
	}

	u, err := s.users.Create(email, hash, name)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and returns the user on success. Unknown email
// and wrong password are indistinguishable to the caller so the endpoint
// cannot be used to enumerate accounts.
func (s *Service) Login(email, password string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
