package sandbox

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/entity"
)

type StagingSuite struct {
	suite.Suite
	ctx context.Context
	f   *fixture
}

func TestStagingSuite(t *testing.T) {
	suite.Run(t, new(StagingSuite))
}

func (s *StagingSuite) SetupTest() {
	s.ctx = context.Background()
	f, err := newFixture(articleConfig())
	s.Require().NoError(err)
	s.f = f
}

func (s *StagingSuite) record(ref entity.Ref) *Record {
	rec, err := s.f.sandboxes.FindBySource(s.ctx, ref)
	s.Require().NoError(err)
	return rec
}

func (s *StagingSuite) persisted(ref entity.Ref) *article {
	e, err := s.f.entities.Get(s.ctx, ref)
	s.Require().NoError(err)
	return e.(*article)
}

func (s *StagingSuite) TestCreateSnapshotsInputAndAppliesDefaults() {
	a := &article{id: "a1", Title: "First post", Body: "Hello.", Visible: true}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	rec := s.record(a.Ref())
	s.Equal(map[string]any{"title": "First post", "body": "Hello."}, rec.Fields)
	s.Equal(map[string]any{"visible": true}, rec.Store)
	s.True(rec.Draft)
	s.Equal(StatusPending, rec.Status)

	// Defaults overwrote the persisted entity: hidden, title blanked.
	got := s.persisted(a.Ref())
	s.False(got.Visible)
	s.Equal("", got.Title)
	s.Equal("Hello.", got.Body)
}

func (s *StagingSuite) TestUpdateRevertsMonitoredFieldsUntilApproved() {
	a := &article{id: "a1", Title: "Original", Body: "Original body."}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	edit := s.persisted(a.Ref())
	edit.Title = "Edited"
	edit.Body = "Edited body."
	s.Require().NoError(s.f.entities.Save(s.ctx, edit, false))

	// The durable write landed reverted; the edit lives in the record.
	got := s.persisted(a.Ref())
	s.Equal("", got.Title) // creation default still in force
	s.Equal("Original body.", got.Body)

	rec := s.record(a.Ref())
	s.Equal(StatusPending, rec.Status)
	s.Equal("Edited", rec.Fields["title"])
	s.Equal("Edited body.", rec.Fields["body"])
}

func (s *StagingSuite) TestUpdateWithoutMonitoredChangesAutoApproves() {
	a := &article{id: "a1", Title: "Original", Body: "Original body."}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	// Re-save the persisted state untouched: the diff is empty, so the
	// trivial-change rule approves and the record leaves pending.
	same := s.persisted(a.Ref())
	s.Require().NoError(s.f.entities.Save(s.ctx, same, false))

	rec := s.record(a.Ref())
	s.Equal(StatusApproved, rec.Status)
	s.False(rec.Draft)
	s.NotNil(rec.DecidedAt)
}

func (s *StagingSuite) TestLatestEditWinsOverPriorPending() {
	a := &article{id: "a1", Title: "Original", Body: "Original body."}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	first := s.persisted(a.Ref())
	first.Body = "First edit."
	s.Require().NoError(s.f.entities.Save(s.ctx, first, false))

	second := s.persisted(a.Ref())
	second.Body = "Second edit."
	s.Require().NoError(s.f.entities.Save(s.ctx, second, false))

	rec := s.record(a.Ref())
	s.Equal("Second edit.", rec.Fields["body"])
}

func (s *StagingSuite) TestAuthorizedAuthorIsAutoApproved() {
	author := entity.Actor{ID: "u1", Permissions: []string{"moderate_article"}}
	a := &article{id: "a1", authors: []entity.Actor{author}, Title: "T", Body: "B", Visible: true}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	rec := s.record(a.Ref())
	s.Equal(StatusApproved, rec.Status)
	s.Equal("u1", rec.Moderator)

	// Approval restored the staged values over the defaults.
	got := s.persisted(a.Ref())
	s.Equal("T", got.Title)
	s.True(got.Visible)
}

func (s *StagingSuite) TestStaffAutoApprovalIsOptIn() {
	staff := entity.Actor{ID: "u2", Staff: true}

	a := &article{id: "a1", authors: []entity.Actor{staff}, Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))
	s.Equal(StatusPending, s.record(a.Ref()).Status)

	cfg := articleConfig()
	cfg.AutoApproveStaff = true
	f2, err := newFixture(cfg)
	s.Require().NoError(err)

	b := &article{id: "b1", authors: []entity.Actor{staff}, Title: "T", Body: "B"}
	s.Require().NoError(f2.entities.Save(s.ctx, b, false))
	rec, err := f2.sandboxes.FindBySource(s.ctx, b.Ref())
	s.Require().NoError(err)
	s.Equal(StatusApproved, rec.Status)
	s.Equal("u2", rec.Moderator)
}

func (s *StagingSuite) TestAutoApproveNewAppliesToCreationOnly() {
	cfg := articleConfig()
	cfg.AutoApproveNew = true
	f, err := newFixture(cfg)
	s.Require().NoError(err)

	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(f.entities.Save(s.ctx, a, false))
	rec, err := f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.Equal(StatusApproved, rec.Status)

	edit, err := f.entities.Get(s.ctx, a.Ref())
	s.Require().NoError(err)
	edit.(*article).Body = "Edited."
	s.Require().NoError(f.entities.Save(s.ctx, edit, false))

	rec, err = f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.Equal(StatusPending, rec.Status)
}

func (s *StagingSuite) TestAutoApproveByRequestUsesContextActor() {
	cfg := articleConfig()
	cfg.AutoApproveByRequest = true
	f, err := newFixture(cfg)
	s.Require().NoError(err)

	ctx := entity.WithActor(s.ctx, entity.Actor{ID: "mod", Permissions: []string{"moderate_article"}})
	// The entity's own author list is empty; the acting user approves.
	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(f.entities.Save(ctx, a, false))

	rec, err := f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.Equal(StatusApproved, rec.Status)
	s.Equal("mod", rec.Moderator)
}

func (s *StagingSuite) TestDecidedRecordReentersPendingOnRealChange() {
	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	rec := s.record(a.Ref())
	_, err := s.f.merger.Approve(s.ctx, rec, "mod-1", true)
	s.Require().NoError(err)

	edit := s.persisted(a.Ref())
	edit.Body = "New body."
	s.Require().NoError(s.f.entities.Save(s.ctx, edit, false))

	rec = s.record(a.Ref())
	s.Equal(StatusPending, rec.Status)
	s.Empty(rec.Moderator)
	s.Nil(rec.DecidedAt)
	s.Empty(rec.Reason)
}

func (s *StagingSuite) TestBypassWriteSkipsStaging() {
	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))

	edit := s.persisted(a.Ref())
	edit.Body = "Straight through."
	s.Require().NoError(s.f.entities.Save(s.ctx, edit, true))

	got := s.persisted(a.Ref())
	s.Equal("Straight through.", got.Body)
}

func (s *StagingSuite) TestDeleteCascadesRecord() {
	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))
	s.Require().NotNil(s.record(a.Ref()))

	s.Require().NoError(s.f.entities.Delete(s.ctx, a.Ref()))

	_, err := s.f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Error(err)
}

func (s *StagingSuite) TestDuplicateRegistrationFailsFast() {
	err := s.f.engine.Register(articleConfig())
	s.Error(err)
}

// recordingStagingTrail captures staging lifecycle audit calls.
type recordingStagingTrail struct {
	staged    []entity.Ref
	actors    []string
	discarded []entity.Ref
}

func (t *recordingStagingTrail) Staged(_ context.Context, source entity.Ref, actor string) {
	t.staged = append(t.staged, source)
	t.actors = append(t.actors, actor)
}

func (t *recordingStagingTrail) Discarded(_ context.Context, source entity.Ref, _ string) {
	t.discarded = append(t.discarded, source)
}

func TestStagingEmitsAuditTrail(t *testing.T) {
	ctx := context.Background()
	trail := &recordingStagingTrail{}
	f, err := newFixture(articleConfig(), WithStagingTrail(trail))
	require.NoError(t, err)

	a := &article{id: "a1", Title: "T", Body: "B"}
	ctx = entity.WithActor(ctx, entity.Actor{ID: "author-1"})
	require.NoError(t, f.entities.Save(ctx, a, false))
	require.Equal(t, []entity.Ref{a.Ref()}, trail.staged)
	require.Equal(t, []string{"author-1"}, trail.actors)

	a.Body = "B revised"
	require.NoError(t, f.entities.Save(ctx, a, false))
	require.Len(t, trail.staged, 2)

	require.NoError(t, f.entities.Delete(ctx, a.Ref()))
	require.Equal(t, []entity.Ref{a.Ref()}, trail.discarded)
}

func TestBypassWriteLeavesNoAuditEntry(t *testing.T) {
	ctx := context.Background()
	trail := &recordingStagingTrail{}
	f, err := newFixture(articleConfig(), WithStagingTrail(trail))
	require.NoError(t, err)

	a := &article{id: "a1", Title: "T", Body: "B"}
	require.NoError(t, f.entities.Save(ctx, a, true))
	require.Empty(t, trail.staged)
}

func TestConcurrentEditsSerializePerEntity(t *testing.T) {
	f, err := newFixture(articleConfig())
	require.NoError(t, err)
	ctx := context.Background()

	a := &article{id: "a1", Title: "T", Body: "B"}
	require.NoError(t, f.entities.Save(ctx, a, false))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := f.entities.Get(ctx, a.Ref())
			if err != nil {
				return
			}
			e.(*article).Body = fmt.Sprintf("edit %d", i)
			_ = f.entities.Save(ctx, e, false)
		}(i)
	}
	wg.Wait()

	// Exactly one record survives and it holds one complete staged edit,
	// never an interleaving of two.
	rec, err := f.sandboxes.FindBySource(ctx, a.Ref())
	require.NoError(t, err)
	require.Contains(t, rec.Fields["body"], "edit ")
	require.Equal(t, StatusPending, rec.Status)

	got, err := f.entities.Get(ctx, a.Ref())
	require.NoError(t, err)
	require.Equal(t, "B", got.(*article).Body)
}
