// Package audit records applied AI actions in a capped ring buffer on
// the site root.
package audit

import (
	"time"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

const (
	// Key is the site-root annotation the log lives under.
	Key = "kyra.ai_actions_audit"
	// Limit caps the log; the oldest entries are dropped first.
	Limit = 200
)

// Entry is one applied-actions record.
type Entry struct {
	Timestamp time.Time        `json:"timestamp"`
	UserID    string           `json:"user_id"`
	Path      string           `json:"path"`
	PlanID    string           `json:"plan_id,omitempty"`
	Actions   []map[string]any `json:"actions"`
}

// Log appends entries to the site root's annotation ring buffer. The
// buffer is shared site-wide without locking; truncation is idempotent
// under races.
type Log struct {
	log   *logger.Logger
	store content.Store
	now   func() time.Time
}

func NewLog(log *logger.Logger, store content.Store) *Log {
	return &Log{
		log:   log.With("service", "AuditLog"),
		store: store,
		now:   time.Now,
	}
}

// Record appends one entry for actions applied to target.
func (l *Log) Record(target *content.Object, actions []map[string]any, userID, planID string) {
	entry := Entry{
		Timestamp: l.now().UTC(),
		UserID:    userID,
		Path:      "/" + target.Path,
		PlanID:    planID,
		Actions:   actions,
	}

	root := l.store.Root()
	entries := l.Entries()
	entries = append(entries, entry)
	if len(entries) > Limit {
		entries = entries[len(entries)-Limit:]
	}
	root.SetAnnotation(Key, entries)

	l.log.Info("ai actions applied",
		"path", entry.Path,
		"user_id", entry.UserID,
		"plan_id", entry.PlanID,
		"actions", len(entry.Actions),
	)
}

// Entries returns the current log, oldest first.
func (l *Log) Entries() []Entry {
	if raw, ok := l.store.Root().Annotation(Key); ok {
		if entries, ok := raw.([]Entry); ok {
			return entries
		}
	}
	return nil
}
