package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) (*PostgresUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &PostgresUserStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresUserStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByEmail(email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, ErrUserNotFound
	}

	const q = `SELECT id, email, name, password_hash, role, created_at FROM users WHERE email = $1`
	var u User
	var role string
	if err := s.db.QueryRow(q, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	u.Role = ParseRole(role)
	return u, nil
}

func (s *PostgresUserStore) FindByID(id int) (User, error) {
	const q = `SELECT id, email, name, password_hash, role, created_at FROM users WHERE id = $1`
	var u User
	var role string
	if err := s.db.QueryRow(q, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}
	u.Role = ParseRole(role)
	return u, nil
}

func (s *PostgresUserStore) Create(email, passwordHash, name string) (User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || passwordHash == "" || name == "" {
		return User{}, fmt.Errorf("email, password hash, and name are required")
	}

	const q = `
INSERT INTO users (email, password_hash, name)
VALUES ($1, $2, $3)
RETURNING id, email, name, password_hash, role, created_at`
	var u User
	var role string
	err := s.db.QueryRow(q, email, passwordHash, name).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		// The unique constraint, not the handler's advisory pre-check, is
		// what settles a registration race.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	u.Role = ParseRole(role)
	return u, nil
}

func (s *PostgresUserStore) SetRole(email string, role Role) error {
	email = NormalizeEmail(email)

	const q = `UPDATE users SET role = $2 WHERE email = $1`
	res, err := s.db.Exec(q, email, string(role))
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read role update affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
