// Package client is a Go client for the blog HTTP API. It carries the
// session cookie in a jar and mirrors the logged-in user to a small JSON
// cache file, the way the web frontend mirrors it to browser storage.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/shubekshya11/BlogApp/internal/auth"
	"github.com/shubekshya11/BlogApp/internal/posts"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *userCache
}

// New builds a client for the API at baseURL. cachePath may be empty to
// disable the logged-in user cache.
func New(baseURL, cachePath string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
		cache:   &userCache{path: cachePath},
	}, nil
}

type authResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    auth.PublicUser `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, password, name string) (auth.PublicUser, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth", map[string]string{
		"action":   "register",
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		return auth.PublicUser{}, err
	}
	return resp.User, nil
}

// Login authenticates and remembers the returned user in the cache file.
// The session cookie lands in the jar via the response's Set-Cookie.
func (c *Client) Login(ctx context.Context, email, password string) (auth.PublicUser, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth", map[string]string{
		"action":   "login",
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return auth.PublicUser{}, err
	}
	if err := c.cache.save(resp.User); err != nil {
		return resp.User, fmt.Errorf("save user cache: %w", err)
	}
	return resp.User, nil
}

// Logout hits the logout endpoint and clears the cached user. The server
// answers 200 whether or not a session cookie was sent.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	return c.cache.clear()
}

// CurrentUser returns the cached logged-in user, if any. A cache file that
// does not parse is treated as absent and removed.
func (c *Client) CurrentUser() (auth.PublicUser, bool) {
	return c.cache.load()
}

func (c *Client) Posts(ctx context.Context) ([]posts.Post, error) {
	var out []posts.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Post(ctx context.Context, id int) (posts.Post, error) {
	var out posts.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, &out); err != nil {
		return posts.Post{}, err
	}
	return out, nil
}

func (c *Client) CreatePost(ctx context.Context, in posts.CreateInput) (posts.Post, error) {
	var out posts.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", in, &out); err != nil {
		return posts.Post{}, err
	}
	return out, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int, title, content string) (posts.Post, error) {
	var out posts.Post
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/posts/%d", id), map[string]string{
		"title":   title,
		"content": content,
	}, &out)
	if err != nil {
		return posts.Post{}, err
	}
	return out, nil
}

type deleteResponse struct {
	Message     string     `json:"message"`
	DeletedPost posts.Post `json:"deletedPost"`
}

func (c *Client) DeletePost(ctx context.Context, id int) (posts.Post, error) {
	var out deleteResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, &out); err != nil {
		return posts.Post{}, err
	}
	return out.DeletedPost, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error == "" {
			envelope.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
