// Package sandbox implements the moderation staging engine: proposed changes
// to a monitored entity are staged in a sandbox record, diffed against the
// persisted state, auto-approved or queued for a moderator, and merged back
// with per-field validation.
package sandbox

import (
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
)

// Status is the moderation decision state of a record. The zero value means
// no decision has been recorded yet.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Terminal reports whether the status is a recorded decision. Terminal is per
// edit cycle only: a later edit with a non-empty diff re-enters pending.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

func (s Status) String() string {
	if s == "" {
		return string(StatusPending)
	}
	return string(s)
}

// Record is the staged snapshot plus moderation metadata for one monitored
// entity. Exactly one record exists per live entity; it is created with the
// entity and destroyed with it.
//
// Fields holds the pending values of monitored fields; Store holds auxiliary
// values preserved for restoration independent of the diff (for example a
// visibility flag suppressed at creation). Both are plain JSON-shaped maps so
// moderation tooling can inspect pending edits without decoding domain types.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	Source    entity.Ref     `json:"source"`
	Fields    map[string]any `json:"fields"`
	Store     map[string]any `json:"store"`
	Status    Status         `json:"status"`
	Draft     bool           `json:"draft"`
	Moderator string         `json:"moderator,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewRecord creates the record for a freshly persisted entity. Records start
// as drafts with no decision recorded.
func NewRecord(source entity.Ref, now time.Time) *Record {
	return &Record{
		ID:        uuid.New(),
		Source:    source,
		Fields:    make(map[string]any),
		Store:     make(map[string]any),
		Status:    StatusPending,
		Draft:     true,
		UpdatedAt: now,
	}
}

// Snapshot is the introspectable staged payload handed to moderation tooling.
type Snapshot struct {
	Fields map[string]any `json:"fields"`
	Store  map[string]any `json:"store"`
}

// Snapshot returns a copy of the staged payload so callers cannot mutate the
// record through it.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		Fields: copyValues(r.Fields),
		Store:  copyValues(r.Store),
	}
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = copyValues(r.Fields)
	c.Store = copyValues(r.Store)
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
