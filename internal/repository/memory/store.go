// Package memory keeps every repository in process memory. It backs STORAGE=memory and the
// service tests, and honors the same per-event locking contract as the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"eventparticipation/internal/domain"
)

// Store holds users, categories, events and participation requests.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	categories map[string]domain.Category
	events     map[string]domain.Event
	requests   map[string]domain.ParticipationRequest

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		categories: make(map[string]domain.Category),
		events:     make(map[string]domain.Event),
		requests:   make(map[string]domain.ParticipationRequest),
		locks:      make(map[string]*sync.Mutex),
	}
}

// AddUser registers a user. An empty ID is replaced by a new UUID.
func (s *Store) AddUser(u domain.User) domain.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return u
}

// AddCategory registers a category. An empty ID is replaced by a new UUID.
func (s *Store) AddCategory(c domain.Category) domain.Category {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return c
}

func (s *Store) Users() domain.UserRepository          { return userRepo{s} }
func (s *Store) Categories() domain.CategoryRepository { return categoryRepo{s} }
func (s *Store) Events() domain.EventRepository        { return eventRepo{s} }
func (s *Store) Requests() domain.RequestRepository    { return &requestRepo{s: s} }
func (s *Store) Locker() domain.EventLocker            { return s }

// WithEventLock runs fn while holding the mutex of eventID. Status writes made through the
// repository passed to fn are undone when fn fails.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, requests domain.RequestRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	_, ok := s.events[eventID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}

	lock := s.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	tx := &requestRepo{s: s, journal: true}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) eventLock(eventID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.users[id]
	return ok, nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(_ context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[event.ID] = *event
	return nil
}

func (r eventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r eventRepo) ListByInitiatorID(_ context.Context, initiatorID string, params domain.PaginationParams) ([]*domain.Event, error) {
	r.s.mu.RLock()
	var events []*domain.Event
	for _, e := range r.s.events {
		if e.InitiatorID == initiatorID {
			events = append(events, &e)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedOn.Equal(events[j].CreatedOn) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedOn.Before(events[j].CreatedOn)
	})
	from := params.Offset()
	if from >= len(events) {
		return []*domain.Event{}, nil
	}
	to := min(from+params.Limit(), len(events))
	return events[from:to], nil
}

func (r eventRepo) Update(_ context.Context, event *domain.Event, expected domain.EventState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.events[event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.State != expected {
		return fmt.Errorf("%w: event %s is no longer %s", domain.ErrConflict, event.ID, expected)
	}
	r.s.events[event.ID] = *event
	return nil
}

func (r eventRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.events[id]
	return ok, nil
}

// requestRepo reads and writes requests. With journal set it remembers the previous value of
// every row it touches so rollback can restore them.
type requestRepo struct {
	s       *Store
	journal bool
	undo    []func()
}

func (r *requestRepo) Create(_ context.Context, req *domain.ParticipationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.requests[req.ID] = *req
	if r.journal {
		id := req.ID
		r.undo = append(r.undo, func() { delete(r.s.requests, id) })
	}
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.ParticipationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (r *requestRepo) ListByIDs(_ context.Context, ids []string) ([]*domain.ParticipationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ParticipationRequest, 0, len(ids))
	for _, id := range ids {
		if req, ok := r.s.requests[id]; ok {
			out = append(out, &req)
		}
	}
	return out, nil
}

func (r *requestRepo) ListByEventID(_ context.Context, eventID string) ([]*domain.ParticipationRequest, error) {
	return r.filter(func(req domain.ParticipationRequest) bool { return req.EventID == eventID }), nil
}

func (r *requestRepo) ListByRequesterID(_ context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	return r.filter(func(req domain.ParticipationRequest) bool { return req.RequesterID == requesterID }), nil
}

func (r *requestRepo) GetActiveByEventAndRequester(_ context.Context, eventID, requesterID string) (*domain.ParticipationRequest, error) {
	found := r.filter(func(req domain.ParticipationRequest) bool {
		return req.EventID == eventID && req.RequesterID == requesterID && req.Status != domain.RequestStatusCanceled
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *requestRepo) CountByEventAndStatus(_ context.Context, eventID string, status domain.RequestStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, req := range r.s.requests {
		if req.EventID == eventID && req.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *requestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return r.UpdateStatuses(ctx, []string{id}, status)
}

func (r *requestRepo) UpdateStatuses(_ context.Context, ids []string, status domain.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.s.requests[id]; !ok {
			return fmt.Errorf("%w: request %s", domain.ErrNotFound, id)
		}
	}
	for _, id := range ids {
		prev := r.s.requests[id]
		if r.journal {
			r.undo = append(r.undo, func() { r.s.requests[prev.ID] = prev })
		}
		next := prev
		next.Status = status
		r.s.requests[id] = next
	}
	return nil
}

func (r *requestRepo) rollback() {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = nil
}

// filter returns matching requests ordered by creation time.
func (r *requestRepo) filter(match func(domain.ParticipationRequest) bool) []*domain.ParticipationRequest {
	r.s.mu.RLock()
	out := []*domain.ParticipationRequest{}
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, &req)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}
