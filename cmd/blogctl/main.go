// Command blogctl exercises the blog API from the terminal: account
// registration and login, the post CRUD endpoints, and the cached
// logged-in user.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shubekshya11/BlogApp/internal/client"
	"github.com/shubekshya11/BlogApp/internal/posts"
)

func main() {
	baseURL := envOr("BLOG_API_URL", "http://localhost:8080")
	cachePath := os.Getenv("BLOG_USER_CACHE")
	if cachePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cachePath = filepath.Join(home, ".blogctl", "user.json")
		}
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	c, err := client.New(baseURL, cachePath)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "register":
		runRegister(ctx, c, args)
	case "login":
		runLogin(ctx, c, args)
	case "logout":
		if err := c.Logout(ctx); err != nil {
			fatal(err)
		}
		fmt.Println("logged out")
	case "whoami":
		u, ok := c.CurrentUser()
		if !ok {
			fmt.Println("not logged in")
			os.Exit(1)
		}
		printJSON(u)
	case "list":
		out, err := c.Posts(ctx)
		if err != nil {
			fatal(err)
		}
		printJSON(out)
	case "get":
		runGet(ctx, c, args)
	case "create":
		runCreate(ctx, c, args)
	case "update":
		runUpdate(ctx, c, args)
	case "delete":
		runDelete(ctx, c, args)
	default:
		usage()
		os.Exit(2)
	}
}

func runRegister(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	_ = fs.Parse(args)

	u, err := c.Register(ctx, *email, *password, *name)
	if err != nil {
		fatal(err)
	}
	printJSON(u)
}

func runLogin(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	u, err := c.Login(ctx, *email, *password)
	if err != nil {
		fatal(err)
	}
	printJSON(u)
}

func runGet(ctx context.Context, c *client.Client, args []string) {
	id := mustID(args)
	p, err := c.Post(ctx, id)
	if err != nil {
		fatal(err)
	}
	printJSON(p)
}

func runCreate(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "post content")
	author := fs.String("author", "", "author display name")
	userID := fs.Int("user-id", 0, "author user id")
	_ = fs.Parse(args)

	if *author == "" || *userID == 0 {
		if u, ok := c.CurrentUser(); ok {
			if *author == "" {
				*author = u.Name
			}
			if *userID == 0 {
				*userID = u.ID
			}
		}
	}

	p, err := c.CreatePost(ctx, posts.CreateInput{
		Title:      *title,
		Content:    *content,
		AuthorName: *author,
		UserID:     *userID,
	})
	if err != nil {
		fatal(err)
	}
	printJSON(p)
}

func runUpdate(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int("id", 0, "post id")
	title := fs.String("title", "", "new title")
	content := fs.String("content", "", "new content")
	_ = fs.Parse(args)

	p, err := c.UpdatePost(ctx, *id, *title, *content)
	if err != nil {
		fatal(err)
	}
	printJSON(p)
}

func runDelete(ctx context.Context, c *client.Client, args []string) {
	id := mustID(args)
	p, err := c.DeletePost(ctx, id)
	if err != nil {
		fatal(err)
	}
	fmt.Println("deleted:")
	printJSON(p)
}

func mustID(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "expected a post id")
		os.Exit(2)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid post id %q\n", args[0])
		os.Exit(2)
	}
	return id
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(b))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: blogctl <command> [flags]

commands:
  register  -email -password -name
  login     -email -password
  logout
  whoami
  list
  get       <id>
  create    -title -content [-author] [-user-id]
  update    -id -title -content
  delete    <id>

environment:
  BLOG_API_URL     API base URL (default http://localhost:8080)
  BLOG_USER_CACHE  logged-in user cache file (default ~/.blogctl/user.json)`)
}
