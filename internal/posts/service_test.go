package posts

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCreateAndGet(t *testing.T) {
	svc := NewService()

	created, err := svc.Create(CreateInput{
		Title: "hello", Content: "world", AuthorName: "Alice", UserID: 3,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
	if created.UserID == nil || *created.UserID != 3 {
		t.Fatalf("expected owner 3, got %v", created.UserID)
	}

	got, err := svc.Get(1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Title != "hello" || got.AuthorName != "Alice" {
		t.Fatalf("unexpected post: %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{Content: "c", AuthorName: "a", UserID: 1}},
		{"missing content", CreateInput{Title: "t", AuthorName: "a", UserID: 1}},
		{"missing author", CreateInput{Title: "t", Content: "c", UserID: 1}},
		{"missing user id", CreateInput{Title: "t", Content: "c", AuthorName: "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := NewService()

	for _, title := range []string{"first", "second", "third"} {
		if _, err := svc.Create(CreateInput{Title: title, Content: "c", AuthorName: "a", UserID: 1}); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	out, err := svc.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(out))
	}
	if out[0].Title != "third" || out[2].Title != "first" {
		t.Fatalf("expected newest first, got %q..%q", out[0].Title, out[2].Title)
	}
}

func TestUpdate(t *testing.T) {
	svc := NewService()
	created, err := svc.Create(CreateInput{Title: "t", Content: "c", AuthorName: "a", UserID: 1})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := svc.Update(created.ID, "new title", "new content")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Title != "new title" || updated.Content != "new content" {
		t.Fatalf("unexpected post: %+v", updated)
	}
	// Author and owner survive an edit.
	if updated.AuthorName != "a" || updated.UserID == nil || *updated.UserID != 1 {
		t.Fatalf("edit must not change authorship: %+v", updated)
	}

	if _, err := svc.Update(999, "t", "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(created.ID, "", "c"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteReturnsPost(t *testing.T) {
	svc := NewService()
	created, err := svc.Create(CreateInput{Title: "bye", Content: "c", AuthorName: "a", UserID: 1})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	deleted, err := svc.Delete(created.ID)
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if deleted.Title != "bye" {
		t.Fatalf("unexpected deleted post: %+v", deleted)
	}

	if _, err := svc.Get(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := svc.Delete(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestIDsNotReusedAfterDelete(t *testing.T) {
	svc := NewService()

	first, err := svc.Create(CreateInput{Title: "t", Content: "c", AuthorName: "a", UserID: 1})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Delete(first.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	second, err := svc.Create(CreateInput{Title: "t2", Content: "c", AuthorName: "a", UserID: 1})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids must keep increasing, got %d after %d", second.ID, first.ID)
	}
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")

	svc, err := NewServiceWithFile(path)
	if err != nil {
		t.Fatalf("NewServiceWithFile() error: %v", err)
	}
	created, err := svc.Create(CreateInput{Title: "t", Content: "c", AuthorName: "a", UserID: 2})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	reopened, err := NewServiceWithFile(path)
	if err != nil {
		t.Fatalf("reopen service: %v", err)
	}
	got, err := reopened.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() after reopen: %v", err)
	}
	if got.Title != "t" || got.UserID == nil || *got.UserID != 2 {
		t.Fatalf("unexpected post after reopen: %+v", got)
	}
}

func TestCloneIsolatesOwner(t *testing.T) {
	owner := 4
	p := Post{ID: 1, UserID: &owner}

	c := p.Clone()
	*c.UserID = 9

	if *p.UserID != 4 {
		t.Fatalf("clone must not share the owner pointer")
	}
}
