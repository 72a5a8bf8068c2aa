package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventparticipation/internal/domain"
)

func seedEvent(t *testing.T, s *Store) *domain.Event {
	t.Helper()
	ev := &domain.Event{Title: "Meetup", InitiatorID: "u1", State: domain.EventStatePublished, CreatedOn: time.Now()}
	require.NoError(t, s.Events().Create(context.Background(), ev))
	require.NotEmpty(t, ev.ID)
	return ev
}

func TestStore_WithEventLock_UnknownEvent(t *testing.T) {
	s := NewStore()
	err := s.WithEventLock(context.Background(), "missing", func(context.Context, domain.RequestRepository) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithEventLock_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ev := seedEvent(t, s)

	existing := domain.NewParticipationRequest(ev.ID, "u2", domain.RequestStatusPending, time.Now())
	require.NoError(t, s.Requests().Create(ctx, existing))

	boom := errors.New("boom")
	var created *domain.ParticipationRequest
	err := s.WithEventLock(ctx, ev.ID, func(ctx context.Context, requests domain.RequestRepository) error {
		require.NoError(t, requests.UpdateStatus(ctx, existing.ID, domain.RequestStatusConfirmed))
		created = domain.NewParticipationRequest(ev.ID, "u3", domain.RequestStatusPending, time.Now())
		require.NoError(t, requests.Create(ctx, created))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Requests().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, got.Status)
	_, err = s.Requests().GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithEventLock_Serializes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ev := seedEvent(t, s)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithEventLock(ctx, ev.ID, func(context.Context, domain.RequestRepository) error {
				mu.Lock()
				inside++
				if inside > 1 {
					overlap = true
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
}

func TestRequestRepo_Queries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ev := seedEvent(t, s)
	repo := s.Requests()

	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	r1 := domain.NewParticipationRequest(ev.ID, "u2", domain.RequestStatusConfirmed, base)
	r2 := domain.NewParticipationRequest(ev.ID, "u3", domain.RequestStatusCanceled, base.Add(time.Minute))
	r3 := domain.NewParticipationRequest("other", "u3", domain.RequestStatusPending, base.Add(2*time.Minute))
	for _, r := range []*domain.ParticipationRequest{r1, r2, r3} {
		require.NoError(t, repo.Create(ctx, r))
	}

	byEvent, err := repo.ListByEventID(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, byEvent, 2)
	assert.Equal(t, r1.ID, byEvent[0].ID)

	n, err := repo.CountByEventAndStatus(ctx, ev.ID, domain.RequestStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// canceled requests do not block a new one
	_, err = repo.GetActiveByEventAndRequester(ctx, ev.ID, "u3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := repo.ListByIDs(ctx, []string{r1.ID, "nope", r3.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	err = repo.UpdateStatuses(ctx, []string{r3.ID, "nope"}, domain.RequestStatusRejected)
	require.ErrorIs(t, err, domain.ErrNotFound)
	got, _ := repo.GetByID(ctx, r3.ID)
	assert.Equal(t, domain.RequestStatusPending, got.Status)
}

func TestEventRepo_ListByInitiatorID_Paginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, s.Events().Create(ctx, &domain.Event{InitiatorID: "u1", CreatedOn: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, s.Events().Create(ctx, &domain.Event{InitiatorID: "u2", CreatedOn: base}))

	page, err := s.Events().ListByInitiatorID(ctx, "u1", domain.PaginationParams{From: 3, Size: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, base.Add(3*time.Hour), page[0].CreatedOn)

	page, err = s.Events().ListByInitiatorID(ctx, "u1", domain.PaginationParams{From: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestEventRepo_Update_GuardsState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ev := seedEvent(t, s)

	stale := *ev
	stale.Title = "Renamed"
	stale.State = domain.EventStateCanceled
	err := s.Events().Update(ctx, &stale, domain.EventStatePending)
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Events().GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meetup", got.Title)
	assert.Equal(t, domain.EventStatePublished, got.State)

	require.NoError(t, s.Events().Update(ctx, &stale, domain.EventStatePublished))
	got, err = s.Events().GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	missing := &domain.Event{ID: "missing"}
	require.ErrorIs(t, s.Events().Update(ctx, missing, domain.EventStatePending), domain.ErrNotFound)
}
