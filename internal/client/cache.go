package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/shubekshya11/BlogApp/internal/auth"
)

// userCache persists the logged-in user between CLI invocations. It is a
// convenience mirror only: the cookie jar, not this file, is what
// authenticates requests.
type userCache struct {
	path string
}

func (c *userCache) load() (auth.PublicUser, bool) {
	if c.path == "" {
		return auth.PublicUser{}, false
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return auth.PublicUser{}, false
	}

	var u auth.PublicUser
	if err := json.Unmarshal(b, &u); err != nil || u.ID <= 0 {
		// Corrupt cache entries are dropped, not surfaced.
		_ = os.Remove(c.path)
		return auth.PublicUser{}, false
	}
	return u, true
}

func (c *userCache) save(u auth.PublicUser) error {
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, b, 0o600)
}

func (c *userCache) clear() error {
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
