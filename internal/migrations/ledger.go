// Package migrations tracks which schema migration files have been applied.
// It does not execute SQL: the stores create their own tables on startup, and
// this ledger exists so operators can see and record what ran against a
// database that is managed out of band.
package migrations

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownMigration = errors.New("unknown migration")
	ErrBadName          = errors.New("invalid migration name")
)

// File is one .sql file found in the migrations directory. The checksum lets
// an operator spot a file that changed after it was recorded as applied.
type File struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
}

// Record is a File joined with its applied state.
type Record struct {
	Name      string `json:"name"`
	Checksum  string `json:"checksum"`
	Applied   bool   `json:"applied"`
	AppliedAt string `json:"applied_at,omitempty"`
}

type stateStore interface {
	Load() (map[string]string, error)
	Mark(name string, at time.Time) error
}

type Ledger struct {
	dir   string
	store stateStore
}

// NewLedger tracks applied state in a JSON file. An empty stateFile keeps the
// ledger in memory only for that process.
func NewLedger(dir, stateFile string) *Ledger {
	return &Ledger{dir: dir, store: &fileState{path: stateFile}}
}

// NewLedgerWithPostgres tracks applied state in a migration_applied table.
func NewLedgerWithPostgres(dir string, db *sql.DB) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	store := &pgState{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return &Ledger{dir: dir, store: store}, nil
}

// Files lists the .sql files in the migrations directory, sorted by name.
func (l *Ledger) Files() ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	out := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		sum, err := checksumFile(filepath.Join(l.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", e.Name(), err)
		}
		out = append(out, File{Name: e.Name(), Checksum: sum})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Status joins the directory listing with the applied state.
func (l *Ledger) Status() ([]Record, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	applied, err := l.store.Load()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(files))
	for _, f := range files {
		at, ok := applied[f.Name]
		out = append(out, Record{
			Name:      f.Name,
			Checksum:  f.Checksum,
			Applied:   ok,
			AppliedAt: at,
		})
	}
	return out, nil
}

// Pending returns the names of migration files with no applied record.
func (l *Ledger) Pending() ([]string, error) {
	status, err := l.Status()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rec := range status {
		if !rec.Applied {
			out = append(out, rec.Name)
		}
	}
	return out, nil
}

// MarkApplied records that the named migration ran at the given time. The
// file must exist; re-marking an applied migration updates its timestamp.
func (l *Ledger) MarkApplied(name string, at time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" || !strings.HasSuffix(name, ".sql") || strings.ContainsAny(name, "/\\") {
		return ErrBadName
	}
	if _, err := os.Stat(filepath.Join(l.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return ErrUnknownMigration
		}
		return fmt.Errorf("stat migration: %w", err)
	}
	return l.store.Mark(name, at.UTC())
}

type fileState struct {
	path string
}

func (s *fileState) Load() (map[string]string, error) {
	state := make(map[string]string)
	if s.path == "" {
		return state, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("read migration state: %w", err)
	}
	if len(b) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("decode migration state: %w", err)
	}
	return state, nil
}

func (s *fileState) Mark(name string, at time.Time) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	state[name] = at.UTC().Format(time.RFC3339)

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode migration state: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write migration state: %w", err)
	}
	return nil
}

type pgState struct {
	db *sql.DB
}

func (s *pgState) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS migration_applied (
	name TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure migration_applied schema: %w", err)
	}
	return nil
}

func (s *pgState) Load() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT name, applied_at FROM migration_applied`)
	if err != nil {
		return nil, fmt.Errorf("query migration state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name string
		var at time.Time
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scan migration state: %w", err)
		}
		out[name] = at.UTC().Format(time.RFC3339)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration state: %w", err)
	}
	return out, nil
}

func (s *pgState) Mark(name string, at time.Time) error {
	const q = `
INSERT INTO migration_applied (name, applied_at)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET applied_at = EXCLUDED.applied_at`
	if _, err := s.db.Exec(q, name, at.UTC()); err != nil {
		return fmt.Errorf("upsert migration state: %w", err)
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
