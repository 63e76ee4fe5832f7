package sandbox

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/entity"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/testutil"
)

// recordingCache is an in-process StatusCache that counts reads.
type recordingCache struct {
	mu     sync.Mutex
	values map[entity.Ref]Status
	hits   int
	misses int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: make(map[entity.Ref]Status)}
}

func (c *recordingCache) GetStatus(_ context.Context, source entity.Ref) (Status, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.values[source]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return status, ok, nil
}

func (c *recordingCache) SetStatus(_ context.Context, source entity.Ref, status Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[source] = status
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, source entity.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, source)
	return nil
}

// recordingTrail captures submissions for assertion.
type recordingTrail struct {
	submitted []entity.Ref
}

func (t *recordingTrail) Submitted(_ context.Context, source entity.Ref, _ string) {
	t.submitted = append(t.submitted, source)
}

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	f     *fixture
	cache *recordingCache
	trail *recordingTrail
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	f, err := newFixture(articleConfig())
	s.Require().NoError(err)
	s.f = f

	s.cache = newRecordingCache()
	s.trail = &recordingTrail{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.f.service = NewService(f.registry, f.sandboxes, f.merger, log, nil,
		WithStatusCache(s.cache), WithTrail(s.trail))
}

// createPending persists an article and leaves its record pending and
// submitted (not a draft).
func (s *ServiceSuite) createPending(id string) (*article, *Record) {
	a := &article{id: id, Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))
	rec, err := s.f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Require().NoError(err)
	rec.Draft = false
	s.Require().NoError(s.f.sandboxes.Save(s.ctx, rec))
	return a, rec
}

func (s *ServiceSuite) TestListPendingSkipsDraftsAndDecided() {
	_, _ = s.createPending("a1")

	// a2 stays a draft.
	a2 := &article{id: "a2", Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a2, false))

	// a3 gets approved.
	_, rec3 := s.createPending("a3")
	_, err := s.f.service.Approve(s.ctx, rec3.ID, "mod-1")
	s.Require().NoError(err)

	pending, err := s.f.service.ListPending(s.ctx, "article")
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("article/a1", pending[0].Source.String())
}

func (s *ServiceSuite) TestListPendingUnknownTypeIsNotFound() {
	_, err := s.f.service.ListPending(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestApproveUnknownRecordIsNotFound() {
	_, err := s.f.service.Approve(s.ctx, uuid.New(), "mod-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestApprovePersistsDecision() {
	a, rec := s.createPending("a1")

	result, err := s.f.service.Approve(s.ctx, rec.ID, "mod-1")
	s.Require().NoError(err)
	s.Empty(result.RejectedFields)

	reloaded, err := s.f.sandboxes.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(StatusApproved, reloaded.Status)
	s.Equal("mod-1", reloaded.Moderator)

	got, err := s.f.entities.Get(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.Equal("T", got.(*article).Title)
}

func (s *ServiceSuite) TestDenyPersistsDecision() {
	_, rec := s.createPending("a1")

	s.Require().NoError(s.f.service.Deny(s.ctx, rec.ID, "mod-1", "not good enough"))

	reloaded, err := s.f.sandboxes.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(StatusDenied, reloaded.Status)
	s.Equal("not good enough", reloaded.Reason)
}

func (s *ServiceSuite) TestSubmitTransitionsDraftOnce() {
	a := &article{id: "a1", Title: "T", Body: "B"}
	s.Require().NoError(s.f.entities.Save(s.ctx, a, false))
	rec, err := s.f.sandboxes.FindBySource(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.Require().True(rec.Draft)

	submitted, err := s.f.service.Submit(s.ctx, rec.ID, "author-1")
	s.Require().NoError(err)
	s.True(submitted)
	s.Equal([]entity.Ref{a.Ref()}, s.trail.submitted)

	// Second submit is a no-op and does not re-audit.
	submitted, err = s.f.service.Submit(s.ctx, rec.ID, "author-1")
	s.Require().NoError(err)
	s.False(submitted)
	s.Len(s.trail.submitted, 1)
}

func (s *ServiceSuite) TestSnapshotReturnsStagedPayloadCopy() {
	_, rec := s.createPending("a1")

	snap, err := s.f.service.GetSnapshot(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("T", snap.Fields["title"])

	snap.Fields["title"] = "mutated"
	again, err := s.f.service.GetSnapshot(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("T", again.Fields["title"])
}

func (s *ServiceSuite) TestStatusQueriesReadThroughTheCache() {
	a, _ := s.createPending("a1")

	pending, err := s.f.service.IsPending(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.True(pending)
	s.Equal(1, s.cache.misses)

	pending, err = s.f.service.IsPending(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.True(pending)
	s.Equal(1, s.cache.hits)
}

func (s *ServiceSuite) TestStatusForUnknownEntityIsFalse() {
	ref := entity.Ref{Type: "article", ID: "ghost"}

	pending, err := s.f.service.IsPending(s.ctx, ref)
	s.Require().NoError(err)
	s.False(pending)

	denied, err := s.f.service.IsDenied(s.ctx, ref)
	s.Require().NoError(err)
	s.False(denied)
}

// A cached decision must not outlive the decision itself: when a fresh edit
// moves the record back to pending, the staging engine invalidates the cache
// so the status queries answer from the store again.
func TestStatusQueriesTrackReenteredPending(t *testing.T) {
	ctx := context.Background()
	statusCache := newRecordingCache()

	f, err := newFixture(articleConfig(), WithStatusInvalidator(statusCache))
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(f.registry, f.sandboxes, f.merger, log, nil, WithStatusCache(statusCache))

	a := &article{id: "a1", Title: "T", Body: "B"}

	testutil.Given(t, "an approved article with its decision cached", func(t *testing.T) {
		require.NoError(t, f.entities.Save(ctx, a, false))
		rec, err := f.sandboxes.FindBySource(ctx, a.Ref())
		require.NoError(t, err)
		rec.Draft = false
		require.NoError(t, f.sandboxes.Save(ctx, rec))
		_, err = svc.Approve(ctx, rec.ID, "mod-1")
		require.NoError(t, err)

		pending, err := svc.IsPending(ctx, a.Ref())
		require.NoError(t, err)
		require.False(t, pending)
	})

	testutil.When(t, "a new edit re-enters the record into pending", func(t *testing.T) {
		a.Body = "B revised"
		require.NoError(t, f.entities.Save(ctx, a, false))

		rec, err := f.sandboxes.FindBySource(ctx, a.Ref())
		require.NoError(t, err)
		require.Equal(t, StatusPending, rec.Status)
	})

	testutil.Then(t, "the status queries reflect the pending state", func(t *testing.T) {
		pending, err := svc.IsPending(ctx, a.Ref())
		require.NoError(t, err)
		require.True(t, pending)

		denied, err := svc.IsDenied(ctx, a.Ref())
		require.NoError(t, err)
		require.False(t, denied)
	})
}

func (s *ServiceSuite) TestIsDeniedAfterRefusal() {
	a, rec := s.createPending("a1")
	s.Require().NoError(s.f.service.Deny(s.ctx, rec.ID, "mod-1", ""))

	denied, err := s.f.service.IsDenied(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.True(denied)

	pending, err := s.f.service.IsPending(s.ctx, a.Ref())
	s.Require().NoError(err)
	s.False(pending)
}
