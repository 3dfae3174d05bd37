// Package audit records authorization decisions as JSON lines. Every grant
// and denial on a mutation endpoint lands here with the caller id and the
// target post id, best-effort: an unwritable audit file never fails the
// request that triggered the entry.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID      string `json:"id"`
	At      string `json:"at"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger returns a logger appending to path. An empty path disables
// auditing; Log becomes a no-op.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Log appends one event. Actor is the caller's user id (or email for
// login/register attempts), target the resource acted on.
func (l *Logger) Log(actor, action, target, outcome, detail string) error {
	if l == nil || l.path == "" {
		return nil
	}
	e := Event{
		ID:      uuid.NewString(),
		At:      time.Now().UTC().Format(time.RFC3339),
		Actor:   actor,
		Action:  action,
		Target:  target,
		Outcome: outcome,
		Detail:  detail,
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
