// Package entity defines the contract between the moderation engine and the
// application's persistent entities. The engine never depends on concrete
// types: anything that exposes its ref, its fields, and its authors can be
// placed under moderation.
package entity

import "context"

// Ref identifies one entity instance: its registered type plus its ID.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return r.Type + "/" + r.ID
}

// IsZero reports whether the ref is unset.
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Actor is a user acting on an entity: an author of a change or a moderator.
type Actor struct {
	ID          string
	Name        string
	Staff       bool
	Permissions []string
}

// HasPermission reports whether the actor holds the named permission.
func (a Actor) HasPermission(name string) bool {
	if name == "" {
		return false
	}
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// Entity is the capability interface monitored types implement. Field and
// SetField give the engine schema-tolerant access to values without
// reflection; FieldNames declares the current schema so stores can snapshot
// and rebuild instances.
type Entity interface {
	Ref() Ref
	FieldNames() []string
	Field(name string) (any, bool)
	SetField(name string, value any) error
	Authors() []Actor
}

type actorKey struct{}

// WithActor records the acting user on the context for a subsequent store
// write. The auto-approval policy consults it when the type's configuration
// allows approval by the requesting user.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom retrieves the acting user from the context, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
