package sandbox

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox/metrics"
)

func fixedTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// article is the monitored entity used across the package tests: two
// reviewed text fields plus a visibility flag preserved for restoration.
type article struct {
	id      string
	authors []entity.Actor
	Title   string
	Body    string
	Visible bool
}

func (a *article) Ref() entity.Ref      { return entity.Ref{Type: "article", ID: a.id} }
func (a *article) FieldNames() []string { return []string{"title", "body", "visible"} }

func (a *article) Field(name string) (any, bool) {
	switch name {
	case "title":
		return a.Title, true
	case "body":
		return a.Body, true
	case "visible":
		return a.Visible, true
	}
	return nil, false
}

func (a *article) SetField(name string, value any) error {
	switch name {
	case "title":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("title wants a string, got %T", value)
		}
		a.Title = s
	case "body":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("body wants a string, got %T", value)
		}
		a.Body = s
	case "visible":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("visible wants a bool, got %T", value)
		}
		a.Visible = b
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

func (a *article) Authors() []entity.Actor { return a.authors }

func (a *article) CloneEntity() entity.Entity {
	c := *a
	c.authors = append([]entity.Actor(nil), a.authors...)
	return &c
}

func articleDefinition() entity.Definition {
	return entity.Definition{
		Type: "article",
		Validators: map[string]entity.FieldValidator{
			"body": func(value any) error {
				s, _ := value.(string)
				if s == "" {
					return fmt.Errorf("body cannot be empty")
				}
				return nil
			},
		},
	}
}

func articleConfig() Config {
	return Config{
		EntityType:      "article",
		MonitoredFields: []string{"title", "body"},
		StoreFields:     []string{"visible"},
		DefaultValues: map[string]any{
			"visible": false,
			"title":   "",
		},
	}
}

// fixture wires a complete in-memory engine for tests.
type fixture struct {
	entities  *entity.MemoryStore
	sandboxes *MemoryStore
	registry  *Registry
	bus       *Bus
	merger    *Merger
	policy    *Policy
	engine    *Engine
	service   *Service
}

func newFixture(cfg Config, engineOpts ...EngineOption) (*fixture, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Nil metrics: promauto registers on the default registry once per
	// process, and every method is nil-safe.
	var m *metrics.Metrics

	f := &fixture{
		entities:  entity.NewMemoryStore(articleDefinition()),
		sandboxes: NewMemoryStore(),
		registry:  NewRegistry(),
		bus:       NewBus(log),
	}
	f.merger = NewMerger(f.registry, f.entities, f.sandboxes, f.bus, log, m)
	f.policy = NewPolicy(f.merger, log, m)
	f.engine = NewEngine(f.registry, f.entities, f.sandboxes, f.policy, log, m, engineOpts...)
	f.service = NewService(f.registry, f.sandboxes, f.merger, log, m)

	if err := f.engine.Register(cfg); err != nil {
		return nil, err
	}
	return f, nil
}
