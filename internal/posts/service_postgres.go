package posts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type PGService struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewPGService(db *sql.DB) (*PGService, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &PGService{
		db:      db,
		nowFunc: time.Now,
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PGService) ensureSchema() error {
	// user_id is nullable on purpose: rows predating ownership tracking have
	// none, and those stay admin-only to mutate.
	const q = `
CREATE TABLE IF NOT EXISTS posts (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_name TEXT NOT NULL,
	user_id INTEGER REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure posts schema: %w", err)
	}
	return nil
}

func (s *PGService) Create(in CreateInput) (Post, error) {
	if err := validate(in); err != nil {
		return Post{}, err
	}

	const q = `
INSERT INTO posts (title, content, author_name, user_id, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, title, content, author_name, user_id, created_at`
	var p Post
	var owner sql.NullInt64
	err := s.db.QueryRow(q, in.Title, in.Content, in.AuthorName, in.UserID, s.nowFunc().UTC()).
		Scan(&p.ID, &p.Title, &p.Content, &p.AuthorName, &owner, &p.CreatedAt)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	p.UserID = ownerPtr(owner)
	return p, nil
}

func (s *PGService) List() ([]Post, error) {
	const q = `
SELECT id, title, content, author_name, user_id, created_at
FROM posts
ORDER BY id DESC`
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := make([]Post, 0)
	for rows.Next() {
		var p Post
		var owner sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorName, &owner, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.UserID = ownerPtr(owner)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

func (s *PGService) Get(id int) (Post, error) {
	const q = `
SELECT id, title, content, author_name, user_id, created_at
FROM posts
WHERE id = $1`
	var p Post
	var owner sql.NullInt64
	if err := s.db.QueryRow(q, id).Scan(&p.ID, &p.Title, &p.Content, &p.AuthorName, &owner, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	p.UserID = ownerPtr(owner)
	return p, nil
}

// Update is a single atomic statement, so concurrent edits of one row are
// serialized by the database without app-level locking.
func (s *PGService) Update(id int, title, content string) (Post, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return Post{}, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}

	const q = `
UPDATE posts
SET title = $2,
	content = $3
WHERE id = $1
RETURNING id, title, content, author_name, user_id, created_at`
	var p Post
	var owner sql.NullInt64
	if err := s.db.QueryRow(q, id, title, content).Scan(&p.ID, &p.Title, &p.Content, &p.AuthorName, &owner, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	p.UserID = ownerPtr(owner)
	return p, nil
}

func (s *PGService) Delete(id int) (Post, error) {
	const q = `
DELETE FROM posts
WHERE id = $1
RETURNING id, title, content, author_name, user_id, created_at`
	var p Post
	var owner sql.NullInt64
	if err := s.db.QueryRow(q, id).Scan(&p.ID, &p.Title, &p.Content, &p.AuthorName, &owner, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("delete post: %w", err)
	}
	p.UserID = ownerPtr(owner)
	return p, nil
}

func ownerPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	id := int(v.Int64)
	return &id
}
