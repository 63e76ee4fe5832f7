// Package content holds the built-in moderated entity: a published entry
// whose description and body are reviewed before going live.
package content

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox"
)

const EntryType = "entry"

// Entry is a piece of authored content. New entries are hidden until a
// moderator approves them; edits to the description or body are staged.
type Entry struct {
	ID          string
	Author      entity.Actor
	UUID        uuid.UUID
	IsVisible   bool
	Created     time.Time
	Description string
	Content     string
}

func NewEntry(id string, author entity.Actor, description, content string) *Entry {
	return &Entry{
		ID:          id,
		Author:      author,
		UUID:        uuid.New(),
		IsVisible:   true,
		Created:     time.Now(),
		Description: description,
		Content:     content,
	}
}

func (e *Entry) Ref() entity.Ref {
	return entity.Ref{Type: EntryType, ID: e.ID}
}

func (e *Entry) FieldNames() []string {
	return []string{"description", "content", "is_visible"}
}

func (e *Entry) Field(name string) (any, bool) {
	switch name {
	case "description":
		return e.Description, true
	case "content":
		return e.Content, true
	case "is_visible":
		return e.IsVisible, true
	}
	return nil, false
}

func (e *Entry) SetField(name string, value any) error {
	switch name {
	case "description":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("description wants a string, got %T", value)
		}
		e.Description = s
	case "content":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("content wants a string, got %T", value)
		}
		e.Content = s
	case "is_visible":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("is_visible wants a bool, got %T", value)
		}
		e.IsVisible = b
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

func (e *Entry) Authors() []entity.Actor {
	return []entity.Actor{e.Author}
}

// CloneEntity lets the in-memory store persist value copies.
func (e *Entry) CloneEntity() entity.Entity {
	c := *e
	return &c
}

const maxContentLength = 10000

// Definition declares the entry schema and its per-field validators for the
// entity store.
func Definition() entity.Definition {
	return entity.Definition{
		Type: EntryType,
		Validators: map[string]entity.FieldValidator{
			"content": func(value any) error {
				s, _ := value.(string)
				if s == "" {
					return fmt.Errorf("content cannot be empty")
				}
				if len(s) > maxContentLength {
					return fmt.Errorf("content exceeds %d characters", maxContentLength)
				}
				return nil
			},
		},
	}
}

// ModerationConfig stages edits to the description and body, keeps new
// entries hidden until approval, and blanks the description while a decision
// is pending.
func ModerationConfig() sandbox.Config {
	return sandbox.Config{
		EntityType:      EntryType,
		MonitoredFields: []string{"description", "content"},
		StoreFields:     []string{"is_visible"},
		DefaultValues: map[string]any{
			"is_visible":  false,
			"description": "",
		},
	}
}
