package entity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/pkg/platform/sentinel"
)

type note struct {
	id   string
	Text string
}

func (n *note) Ref() Ref             { return Ref{Type: "note", ID: n.id} }
func (n *note) FieldNames() []string { return []string{"text"} }
func (n *note) Authors() []Actor     { return nil }
func (n *note) CloneEntity() Entity  { c := *n; return &c }

func (n *note) Field(name string) (any, bool) {
	if name == "text" {
		return n.Text, true
	}
	return nil, false
}

func (n *note) SetField(name string, value any) error {
	if name != "text" {
		return fmt.Errorf("unknown field %q", name)
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("text wants a string, got %T", value)
	}
	n.Text = s
	return nil
}

func noteDefinition() Definition {
	return Definition{
		Type: "note",
		Validators: map[string]FieldValidator{
			"text": func(value any) error {
				s, _ := value.(string)
				if len(s) > 10 {
					return fmt.Errorf("text too long")
				}
				return nil
			},
		},
	}
}

// journal records hook invocations.
type journal struct {
	entries []string
}

func (j *journal) AfterCreate(_ context.Context, e Entity) {
	j.entries = append(j.entries, "create:"+e.Ref().ID)
}

func (j *journal) BeforeWrite(_ context.Context, e Entity) {
	j.entries = append(j.entries, "write:"+e.Ref().ID)
}

func (j *journal) AfterDelete(_ context.Context, ref Ref) {
	j.entries = append(j.entries, "delete:"+ref.ID)
}

func TestMemoryStoreLifecycleHooks(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	j := &journal{}
	require.NoError(t, store.RegisterHooks("note", j))
	ctx := context.Background()

	n := &note{id: "n1", Text: "hello"}
	require.NoError(t, store.Save(ctx, n, false))
	assert.Equal(t, []string{"create:n1"}, j.entries)

	n.Text = "edited"
	require.NoError(t, store.Save(ctx, n, false))
	assert.Equal(t, []string{"create:n1", "write:n1"}, j.entries)

	require.NoError(t, store.Delete(ctx, n.Ref()))
	assert.Equal(t, []string{"create:n1", "write:n1", "delete:n1"}, j.entries)
}

func TestMemoryStoreBypassSkipsHooks(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	j := &journal{}
	require.NoError(t, store.RegisterHooks("note", j))
	ctx := context.Background()

	n := &note{id: "n1", Text: "hello"}
	require.NoError(t, store.Save(ctx, n, true))
	n.Text = "edited"
	require.NoError(t, store.Save(ctx, n, true))

	assert.Empty(t, j.entries)
}

func TestMemoryStoreBeforeWriteMutationsLand(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	require.NoError(t, store.RegisterHooks("note", mutateHook{}))
	ctx := context.Background()

	n := &note{id: "n1", Text: "first"}
	require.NoError(t, store.Save(ctx, n, false))
	n.Text = "second"
	require.NoError(t, store.Save(ctx, n, false))

	got, err := store.Get(ctx, n.Ref())
	require.NoError(t, err)
	assert.Equal(t, "mutated", got.(*note).Text)
}

type mutateHook struct{}

func (mutateHook) AfterCreate(context.Context, Entity) {}
func (mutateHook) AfterDelete(context.Context, Ref)    {}
func (mutateHook) BeforeWrite(_ context.Context, e Entity) {
	_ = e.SetField("text", "mutated")
}

func TestMemoryStoreRegisterHooksRejectsUnknownAndDuplicate(t *testing.T) {
	store := NewMemoryStore(noteDefinition())

	assert.Error(t, store.RegisterHooks("ghost", &journal{}))
	require.NoError(t, store.RegisterHooks("note", &journal{}))
	assert.Error(t, store.RegisterHooks("note", &journal{}))
}

func TestMemoryStoreGetReturnsIndependentCopy(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	ctx := context.Background()

	n := &note{id: "n1", Text: "stored"}
	require.NoError(t, store.Save(ctx, n, true))

	got, err := store.Get(ctx, n.Ref())
	require.NoError(t, err)
	got.(*note).Text = "mutated"

	again, err := store.Get(ctx, n.Ref())
	require.NoError(t, err)
	assert.Equal(t, "stored", again.(*note).Text)
}

func TestMemoryStoreValidateFields(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	ctx := context.Background()

	n := &note{id: "n1", Text: "this text is far too long"}
	errs, err := store.ValidateFields(ctx, n, []string{"text", "absent"})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "text", errs[0].Field)

	n.Text = "short"
	errs, err = store.ValidateFields(ctx, n, []string{"text"})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestMemoryStoreMissesAreNotFound(t *testing.T) {
	store := NewMemoryStore(noteDefinition())
	ctx := context.Background()

	_, err := store.Get(ctx, Ref{Type: "note", ID: "ghost"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	err = store.Delete(ctx, Ref{Type: "note", ID: "ghost"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
