package sandbox

import (
	"fmt"
	"sync"

	dErrors "gatehouse/pkg/domain-errors"
)

// Registry maps entity type identity to its moderation configuration. It is
// populated at startup and read-only afterwards; the engine refuses to touch
// entity types it has no configuration for.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]Config)}
}

// Add validates and records a configuration. Registering the same type twice
// is a configuration error: there must be exactly one moderation surface per
// entity type.
func (r *Registry) Add(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.EntityType]; ok {
		return dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("entity type %q is already registered for moderation", cfg.EntityType))
	}
	r.configs[cfg.EntityType] = cfg
	return nil
}

// Get returns the configuration for an entity type.
func (r *Registry) Get(entityType string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[entityType]
	return cfg, ok
}

// Types lists the registered entity types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	return types
}
