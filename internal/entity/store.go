package entity

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store,Hooks

import "context"

// FieldError reports a single field value the entity schema rejected.
// Validation is an explicit result, not control flow: a failed field never
// aborts the surrounding operation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Store is the persistence collaborator for monitored entities. The
// moderation engine treats it as CRUD plus per-field validation; it never
// reaches into the backing schema itself.
//
// Save with bypass set skips any registered lifecycle hooks. The merge and
// default-override paths use it to write staged values back without
// re-entering staging.
type Store interface {
	Get(ctx context.Context, ref Ref) (Entity, error)
	Save(ctx context.Context, e Entity, bypass bool) error
	ValidateFields(ctx context.Context, e Entity, fields []string) ([]FieldError, error)
	Delete(ctx context.Context, ref Ref) error
}

// Hooks are the lifecycle callbacks the moderation engine registers into a
// store, scoped to one entity type. Hook failures must never block the
// underlying entity write, so they report nothing back to the store.
type Hooks interface {
	// AfterCreate fires exactly once, after the first durable write of a
	// new entity.
	AfterCreate(ctx context.Context, e Entity)
	// BeforeWrite fires prior to a durable write of an existing entity.
	// The hook may mutate e before the write lands.
	BeforeWrite(ctx context.Context, e Entity)
	// AfterDelete fires after an entity is removed, so owned moderation
	// state can cascade.
	AfterDelete(ctx context.Context, ref Ref)
}

// HookRegistrar is implemented by stores that can dispatch lifecycle hooks.
// Registering a moderated type against a store that cannot is a
// configuration error, surfaced at registration time.
type HookRegistrar interface {
	RegisterHooks(entityType string, hooks Hooks) error
}
