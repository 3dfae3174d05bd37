package integration

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/shubekshya11/BlogApp/internal/auth"
	"github.com/shubekshya11/BlogApp/internal/migrations"
	"github.com/shubekshya11/BlogApp/internal/posts"
)

func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Ping(); err != nil {
		t.Fatalf("db.Ping() error: %v", err)
	}
	return db
}

func TestPostgresRegisterAndLogin(t *testing.T) {
	db := openTestPostgres(t)

	store, err := auth.NewPostgresUserStore(db)
	if err != nil {
		t.Fatalf("NewPostgresUserStore() error: %v", err)
	}
	svc, err := auth.NewService(store, auth.ServiceConfig{BcryptCost: 4})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	email := fmt.Sprintf("itest_%d@example.com", time.Now().UnixNano())
	created, err := svc.Register(email, "secret123", "Integration Tester")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, created.ID)
	})
	if created.Role != auth.RoleUser {
		t.Fatalf("expected user role, got %q", created.Role)
	}

	if _, err := svc.Register(email, "otherpass", "Dup"); err == nil {
		t.Fatalf("expected duplicate email to fail")
	}

	got, err := svc.Login(email, "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, got.ID)
	}

	if _, err := svc.Login(email, "wrong-pass"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestPostgresPostCRUDWithOwnership(t *testing.T) {
	db := openTestPostgres(t)

	userStore, err := auth.NewPostgresUserStore(db)
	if err != nil {
		t.Fatalf("NewPostgresUserStore() error: %v", err)
	}
	email := fmt.Sprintf("itest_owner_%d@example.com", time.Now().UnixNano())
	owner, err := userStore.Create(email, "hash", "Owner")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	svc, err := posts.NewPGService(db)
	if err != nil {
		t.Fatalf("NewPGService() error: %v", err)
	}

	created, err := svc.Create(posts.CreateInput{
		Title: "integration post", Content: "body", AuthorName: owner.Name, UserID: owner.ID,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM posts WHERE id = $1`, created.ID)
		_, _ = db.Exec(`DELETE FROM users WHERE id = $1`, owner.ID)
	})
	if created.UserID == nil || *created.UserID != owner.ID {
		t.Fatalf("expected owner %d, got %v", owner.ID, created.UserID)
	}

	caller := auth.Identity{UserID: owner.ID, Role: auth.RoleUser}
	if !auth.CanMutate(caller, created.UserID) {
		t.Fatalf("owner must be allowed to mutate")
	}
	if auth.CanMutate(auth.Identity{UserID: owner.ID + 1, Role: auth.RoleUser}, created.UserID) {
		t.Fatalf("non-owner must be denied")
	}

	updated, err := svc.Update(created.ID, "edited", "new body")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Title != "edited" || updated.AuthorName != owner.Name {
		t.Fatalf("unexpected post: %+v", updated)
	}

	deleted, err := svc.Delete(created.ID)
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if deleted.ID != created.ID {
		t.Fatalf("expected deleted id %d, got %d", created.ID, deleted.ID)
	}

	if _, err := svc.Get(created.ID); err == nil {
		t.Fatalf("expected missing post after delete")
	}
}

func TestPostgresMigrationLedger(t *testing.T) {
	db := openTestPostgres(t)

	dir := t.TempDir()
	name := fmt.Sprintf("%d_itest.sql", time.Now().UnixNano())
	if err := os.WriteFile(dir+"/"+name, []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	ledger, err := migrations.NewLedgerWithPostgres(dir, db)
	if err != nil {
		t.Fatalf("NewLedgerWithPostgres() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM migration_applied WHERE name = $1`, name)
	})

	if err := ledger.MarkApplied(name, time.Now()); err != nil {
		t.Fatalf("MarkApplied() error: %v", err)
	}

	status, err := ledger.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	found := false
	for _, rec := range status {
		if rec.Name == name && rec.Applied {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s to be recorded as applied", name)
	}
}
