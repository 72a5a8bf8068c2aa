package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventparticipation/internal/domain"
	"eventparticipation/internal/repository/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testTimeout = 2 * time.Second

// fixedClock is a Clock that returns a settable instant.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// recordingRecorder counts what the services report.
type recordingRecorder struct {
	mu        sync.Mutex
	resolved  map[domain.RequestStatus]int
	limitHits int
	batches   int
	states    []domain.EventState
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{resolved: make(map[domain.RequestStatus]int)}
}

func (r *recordingRecorder) RequestResolved(status domain.RequestStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[status]++
}

func (r *recordingRecorder) LimitReached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limitHits++
}

func (r *recordingRecorder) BatchDuration(domain.RequestStatus, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
}

func (r *recordingRecorder) EventStateChanged(to domain.EventState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, to)
}

// fixture wires every service over one memory store.
type fixture struct {
	store     *memory.Store
	clock     *fixedClock
	recorder  *recordingRecorder
	admission domain.AdmissionService
	capacity  domain.CapacityCounter
	events    domain.EventService
	requests  domain.RequestService

	organizer domain.User
	category  domain.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fixedClock{now: time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)}
	rec := newRecordingRecorder()

	admission := NewAdmissionService(store.Events(), store.Requests(), store.Locker(), rec, testLogger, testTimeout)
	capacity := NewCapacityCounter(store.Locker())
	return &fixture{
		store:     store,
		clock:     clock,
		recorder:  rec,
		admission: admission,
		capacity:  capacity,
		events: NewEventService(store.Events(), store.Requests(), store.Users(), store.Categories(),
			admission, capacity, rec, clock, testTimeout),
		requests:  NewRequestService(store.Events(), store.Requests(), store.Users(), store.Locker(), rec, clock, testTimeout),
		organizer: store.AddUser(domain.User{Email: "org@example.com", Name: "Organizer"}),
		category:  store.AddCategory(domain.Category{Name: "Concerts"}),
	}
}

// publishedEvent stores a PUBLISHED event owned by the fixture organizer.
func (f *fixture) publishedEvent(t *testing.T, limit int, moderation bool) *domain.Event {
	t.Helper()
	ev := &domain.Event{
		Title:             "Jazz night",
		Annotation:        "Live jazz",
		Description:       "An evening of live jazz",
		CategoryID:        f.category.ID,
		InitiatorID:       f.organizer.ID,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             domain.EventStatePublished,
		EventDate:         f.clock.now.Add(48 * time.Hour),
		CreatedOn:         f.clock.now,
	}
	require.NoError(t, f.store.Events().Create(context.Background(), ev))
	return ev
}

// pendingRequests stores n PENDING requests from fresh users, returning their ids in creation order.
func (f *fixture) pendingRequests(t *testing.T, eventID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := range n {
		u := f.store.AddUser(domain.User{Name: "guest"})
		req := domain.NewParticipationRequest(eventID, u.ID, domain.RequestStatusPending, f.clock.now.Add(time.Duration(i)*time.Second))
		require.NoError(t, f.store.Requests().Create(context.Background(), req))
		ids = append(ids, req.ID)
	}
	return ids
}

func (f *fixture) status(t *testing.T, requestID string) domain.RequestStatus {
	t.Helper()
	req, err := f.store.Requests().GetByID(context.Background(), requestID)
	require.NoError(t, err)
	return req.Status
}

func requestIDs(reqs []*domain.ParticipationRequest) []string {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	return ids
}
