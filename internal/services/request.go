package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventparticipation/internal/domain"
)

type requestService struct {
	eventRepo      domain.EventRepository
	requestRepo    domain.RequestRepository
	userRepo       domain.UserRepository
	locker         domain.EventLocker
	recorder       domain.AdmissionRecorder
	clock          domain.Clock
	contextTimeout time.Duration
}

// NewRequestService creates the requester-facing RequestService.
func NewRequestService(
	eventRepo domain.EventRepository,
	requestRepo domain.RequestRepository,
	userRepo domain.UserRepository,
	locker domain.EventLocker,
	recorder domain.AdmissionRecorder,
	clock domain.Clock,
	timeout time.Duration,
) domain.RequestService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &requestService{
		eventRepo:      eventRepo,
		requestRepo:    requestRepo,
		userRepo:       userRepo,
		locker:         locker,
		recorder:       recorder,
		clock:          clock,
		contextTimeout: timeout,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, requesterID, eventID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ok, err := s.userRepo.ExistsByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, requesterID)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.InitiatorID == requesterID {
		return nil, fmt.Errorf("%w: the organizer cannot request to join their own event", domain.ErrConflict)
	}
	if event.State != domain.EventStatePublished {
		return nil, fmt.Errorf("%w: event %s is not published", domain.ErrConflict, eventID)
	}

	status := domain.RequestStatusPending
	if event.Unlimited() {
		status = domain.RequestStatusConfirmed
	}
	req := domain.NewParticipationRequest(eventID, requesterID, status, s.clock.Now())

	// Duplicate check, capacity check and insert share the event lock so two
	// concurrent joins cannot both take the last slot.
	err = s.locker.WithEventLock(ctx, eventID, func(ctx context.Context, requests domain.RequestRepository) error {
		if _, err := requests.GetActiveByEventAndRequester(ctx, eventID, requesterID); err == nil {
			return fmt.Errorf("%w: user %s already requested to join event %s", domain.ErrConflict, requesterID, eventID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get active request: %w", err)
		}

		if event.ParticipantLimit > 0 {
			confirmed, err := requests.CountByEventAndStatus(ctx, eventID, domain.RequestStatusConfirmed)
			if err != nil {
				return fmt.Errorf("count confirmed: %w", err)
			}
			if confirmed >= event.ParticipantLimit {
				return fmt.Errorf("%w: event %s accepts %d participants", domain.ErrParticipantLimitReached, eventID, event.ParticipantLimit)
			}
		}

		if err := requests.Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrParticipantLimitReached) {
			s.recorder.LimitReached()
		}
		return nil, err
	}
	if req.Status == domain.RequestStatusConfirmed {
		s.recorder.RequestResolved(req.Status)
	}
	return req, nil
}

func (s *requestService) CancelRequest(ctx context.Context, requesterID, requestID string) (*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: request %s", domain.ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: request %s", domain.ErrNotFound, requestID)
	}

	// Re-read under the lock: an organizer batch may be resolving the same request.
	err = s.locker.WithEventLock(ctx, req.EventID, func(ctx context.Context, requests domain.RequestRepository) error {
		current, err := requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status != domain.RequestStatusPending {
			return fmt.Errorf("%w: request %s is %s and cannot be canceled", domain.ErrConflict, requestID, current.Status)
		}
		if err := requests.UpdateStatus(ctx, requestID, domain.RequestStatusCanceled); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		current.Status = domain.RequestStatusCanceled
		req = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) ListUserRequests(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ok, err := s.userRepo.ExistsByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, requesterID)
	}
	reqs, err := s.requestRepo.ListByRequesterID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if reqs == nil {
		reqs = []*domain.ParticipationRequest{}
	}
	return reqs, nil
}
