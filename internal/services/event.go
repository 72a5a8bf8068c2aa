package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventparticipation/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	requestRepo    domain.RequestRepository
	userRepo       domain.UserRepository
	categoryRepo   domain.CategoryRepository
	admission      domain.AdmissionService
	capacity       domain.CapacityCounter
	recorder       domain.LifecycleRecorder
	clock          domain.Clock
	contextTimeout time.Duration
}

// NewEventService returns the event lifecycle service. recorder may be nil.
func NewEventService(
	eventRepo domain.EventRepository,
	requestRepo domain.RequestRepository,
	userRepo domain.UserRepository,
	categoryRepo domain.CategoryRepository,
	admission domain.AdmissionService,
	capacity domain.CapacityCounter,
	recorder domain.LifecycleRecorder,
	clock domain.Clock,
	timeout time.Duration,
) domain.EventService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &eventService{
		eventRepo:      eventRepo,
		requestRepo:    requestRepo,
		userRepo:       userRepo,
		categoryRepo:   categoryRepo,
		admission:      admission,
		capacity:       capacity,
		recorder:       recorder,
		clock:          clock,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, initiatorID string, in domain.NewEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.clock.Now()
	if err := validateNewEvent(in, now); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	event := domain.NewEvent(initiatorID, in, now)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.recorder.EventStateChanged(event.State)
	return event, nil
}

func validateNewEvent(in domain.NewEventInput, now time.Time) error {
	var errs []string
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "title is required")
	}
	if strings.TrimSpace(in.Annotation) == "" {
		errs = append(errs, "annotation is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		errs = append(errs, "description is required")
	}
	if in.CategoryID == "" {
		errs = append(errs, "category is required")
	}
	if in.ParticipantLimit < 0 {
		errs = append(errs, "participant limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return checkEventDate(in.EventDate, now)
}

// checkEventDate enforces that date is strictly more than MinLeadTime after now.
func checkEventDate(date, now time.Time) error {
	if !date.After(now.Add(domain.MinLeadTime)) {
		return fmt.Errorf("%w: event date must be more than %s from now, got %s",
			domain.ErrValidation, domain.MinLeadTime, date.Format(time.RFC3339))
	}
	return nil
}

func (s *eventService) UpdateEventByUser(ctx context.Context, initiatorID, eventID string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	event, err := s.ownedEvent(ctx, initiatorID, eventID)
	if err != nil {
		return nil, err
	}
	if event.State == domain.EventStatePublished {
		return nil, fmt.Errorf("%w: published events cannot be changed by the organizer", domain.ErrConflict)
	}

	readState := event.State
	nextState := event.State
	if patch.StateAction != nil {
		switch *patch.StateAction {
		case domain.StateActionSendToReview:
			nextState = domain.EventStatePending
		case domain.StateActionCancelReview:
			nextState = domain.EventStateCanceled
		default:
			return nil, fmt.Errorf("%w: unsupported state action %q", domain.ErrValidation, *patch.StateAction)
		}
	}
	if patch.EventDate != nil {
		if err := checkEventDate(*patch.EventDate, s.clock.Now()); err != nil {
			return nil, err
		}
	}
	if patch.ParticipantLimit != nil && *patch.ParticipantLimit < 0 {
		return nil, fmt.Errorf("%w: participant limit must not be negative", domain.ErrValidation)
	}
	if patch.CategoryID != nil && *patch.CategoryID != event.CategoryID {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	patch.Apply(event)
	event.State = nextState
	if err := s.eventRepo.Update(ctx, event, readState); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	if readState != nextState {
		s.recorder.EventStateChanged(event.State)
	}
	return s.withConfirmedCount(ctx, event)
}

func (s *eventService) ListUserEvents(ctx context.Context, initiatorID string, params domain.PaginationParams) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByInitiatorID(ctx, initiatorID, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	for _, ev := range events {
		n, err := s.requestRepo.CountByEventAndStatus(ctx, ev.ID, domain.RequestStatusConfirmed)
		if err != nil {
			return nil, fmt.Errorf("count confirmed requests: %w", err)
		}
		ev.ConfirmedRequests = n
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) GetUserEvent(ctx context.Context, initiatorID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	event, err := s.ownedEvent(ctx, initiatorID, eventID)
	if err != nil {
		return nil, err
	}
	return s.withConfirmedCount(ctx, event)
}

func (s *eventService) ListEventRequests(ctx context.Context, initiatorID, eventID string) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	if _, err := s.ownedEvent(ctx, initiatorID, eventID); err != nil {
		return nil, err
	}
	reqs, err := s.requestRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	if reqs == nil {
		reqs = []*domain.ParticipationRequest{}
	}
	return reqs, nil
}

func (s *eventService) ResolveEventRequests(ctx context.Context, initiatorID, eventID string, update domain.StatusUpdate) (*domain.StatusUpdateResult, error) {
	if err := s.ensureUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	if _, err := s.ownedEvent(ctx, initiatorID, eventID); err != nil {
		return nil, err
	}
	return s.admission.ResolveBatch(ctx, eventID, update.RequestIDs, update.Status)
}

func (s *eventService) ModerateEvent(ctx context.Context, eventID string, action domain.StateAction) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	readState := event.State
	now := s.clock.Now()
	switch action {
	case domain.StateActionPublishEvent:
		if event.State != domain.EventStatePending {
			return nil, fmt.Errorf("%w: only pending events can be published, event is %s", domain.ErrConflict, event.State)
		}
		if !event.EventDate.After(now.Add(domain.MinPublishLeadTime)) {
			return nil, fmt.Errorf("%w: event starts within %s", domain.ErrConflict, domain.MinPublishLeadTime)
		}
		event.State = domain.EventStatePublished
		event.PublishedOn = &now
	case domain.StateActionRejectEvent:
		if event.State == domain.EventStatePublished {
			return nil, fmt.Errorf("%w: published events cannot be rejected", domain.ErrConflict)
		}
		event.State = domain.EventStateCanceled
	default:
		return nil, fmt.Errorf("%w: unsupported admin action %q", domain.ErrValidation, action)
	}

	if err := s.eventRepo.Update(ctx, event, readState); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.recorder.EventStateChanged(event.State)
	return s.withConfirmedCount(ctx, event)
}

func (s *eventService) withConfirmedCount(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	n, err := s.capacity.ConfirmedCount(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	event.ConfirmedRequests = n
	return event, nil
}

// ownedEvent loads the event and checks it was created by initiatorID.
func (s *eventService) ownedEvent(ctx context.Context, initiatorID, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.InitiatorID != initiatorID {
		return nil, fmt.Errorf("%w: event %s belongs to another user", domain.ErrForbidden, eventID)
	}
	return event, nil
}

func (s *eventService) ensureUser(ctx context.Context, userID string) error {
	ok, err := s.userRepo.ExistsByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (s *eventService) ensureCategory(ctx context.Context, categoryID string) error {
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: category %s", domain.ErrNotFound, categoryID)
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}
