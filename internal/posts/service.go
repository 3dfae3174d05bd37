package posts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrInvalidInput = errors.New("invalid post input")
)

// CreateInput is what a new post needs. UserID is required here even though
// stored rows may carry a null owner: only pre-existing data is ownerless.
type CreateInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	AuthorName string `json:"author_name"`
	UserID     int    `json:"user_id"`
}

// Service keeps posts in memory, optionally mirrored to a JSON state file.
// It backs deployments without a DATABASE_URL and every handler test.
type Service struct {
	nowFunc   func() time.Time
	stateFile string

	mu     sync.RWMutex
	posts  map[int]Post
	nextID int
}

func NewService() *Service {
	return &Service{
		nowFunc: time.Now,
		posts:   make(map[int]Post),
		nextID:  1,
	}
}

func NewServiceWithFile(stateFile string) (*Service, error) {
	s := &Service{
		nowFunc:   time.Now,
		stateFile: strings.TrimSpace(stateFile),
		posts:     make(map[int]Post),
		nextID:    1,
	}
	if s.stateFile == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := s.loadState(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Create(in CreateInput) (Post, error) {
	if err := validate(in); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner := in.UserID
	p := Post{
		ID:         s.nextID,
		Title:      in.Title,
		Content:    in.Content,
		AuthorName: in.AuthorName,
		UserID:     &owner,
		CreatedAt:  s.nowFunc().UTC(),
	}
	s.posts[p.ID] = p.Clone()
	s.nextID++
	if err := s.persistLocked(); err != nil {
		delete(s.posts, p.ID)
		s.nextID--
		return Post{}, err
	}
	return p, nil
}

// List returns all posts, newest id first, matching the listing the site has
// always shown. The error return exists for the store contract; the in-memory
// backend cannot fail here.
func (s *Service) List() ([]Post, error) {
	s.mu.RLock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Service) Get(id int) (Post, error) {
	s.mu.RLock()
	p, ok := s.posts[id]
	s.mu.RUnlock()
	if !ok {
		return Post{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Update rewrites title and content only. The owner recorded at creation is
// untouched no matter who edits.
func (s *Service) Update(id int, title, content string) (Post, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return Post{}, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	prev := existing.Clone()
	existing.Title = title
	existing.Content = content
	s.posts[id] = existing.Clone()
	if err := s.persistLocked(); err != nil {
		s.posts[id] = prev
		return Post{}, err
	}
	return existing, nil
}

func (s *Service) Delete(id int) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	delete(s.posts, id)
	if err := s.persistLocked(); err != nil {
		s.posts[id] = existing
		return Post{}, err
	}
	return existing.Clone(), nil
}

func (s *Service) loadState() error {
	b, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read post state: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	var decoded []Post
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode post state: %w", err)
	}
	for _, p := range decoded {
		if p.ID == 0 {
			continue
		}
		s.posts[p.ID] = p.Clone()
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return nil
}

func (s *Service) persistLocked() error {
	if s.stateFile == "" {
		return nil
	}
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode post state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.stateFile), 0o755); err != nil {
		return fmt.Errorf("mkdir post state dir: %w", err)
	}
	if err := os.WriteFile(s.stateFile, b, 0o644); err != nil {
		return fmt.Errorf("write post state: %w", err)
	}
	return nil
}

func validate(in CreateInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.AuthorName) == "" {
		return fmt.Errorf("%w: author_name is required", ErrInvalidInput)
	}
	if in.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return nil
}
