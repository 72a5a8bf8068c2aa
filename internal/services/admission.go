package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventparticipation/internal/domain"
)

type admissionService struct {
	eventRepo      domain.EventRepository
	requestRepo    domain.RequestRepository
	locker         domain.EventLocker
	recorder       domain.AdmissionRecorder
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewAdmissionService returns the AdmissionService. Every confirmation re-reads the confirmed
// count and writes the new status inside one locker scope, so concurrent batches for the same
// event cannot both take the last slot. recorder may be nil.
func NewAdmissionService(
	eventRepo domain.EventRepository,
	requestRepo domain.RequestRepository,
	locker domain.EventLocker,
	recorder domain.AdmissionRecorder,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AdmissionService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &admissionService{
		eventRepo:      eventRepo,
		requestRepo:    requestRepo,
		locker:         locker,
		recorder:       recorder,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// ResolveBatch fails the whole batch with ErrConflict when a member is in a terminal status the
// decision cannot move it out of, see domain.AdmissionService.
func (s *admissionService) ResolveBatch(ctx context.Context, eventID string, requestIDs []string, status domain.RequestStatus) (*domain.StatusUpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != domain.RequestStatusConfirmed && status != domain.RequestStatusRejected {
		return nil, fmt.Errorf("%w: status must be %s or %s, got %q",
			domain.ErrValidation, domain.RequestStatusConfirmed, domain.RequestStatusRejected, status)
	}

	start := time.Now()
	defer func() { s.recorder.BatchDuration(status, time.Since(start)) }()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	ids := uniqueIDs(requestIDs)
	if len(ids) == 0 {
		return newResult(), nil
	}

	if status == domain.RequestStatusRejected {
		return s.rejectAll(ctx, eventID, ids)
	}
	return s.confirmInOrder(ctx, event, ids)
}

// rejectAll rejects the whole batch or nothing: a single confirmed request fails the call
// before any write.
func (s *admissionService) rejectAll(ctx context.Context, eventID string, ids []string) (*domain.StatusUpdateResult, error) {
	result := newResult()
	var pending []string
	err := s.locker.WithEventLock(ctx, eventID, func(ctx context.Context, requests domain.RequestRepository) error {
		batch, err := loadBatch(ctx, requests, eventID, ids)
		if err != nil {
			return err
		}
		for _, req := range batch {
			switch req.Status {
			case domain.RequestStatusConfirmed:
				return fmt.Errorf("%w: request %s is already confirmed and cannot be rejected", domain.ErrConflict, req.ID)
			case domain.RequestStatusCanceled:
				return fmt.Errorf("%w: request %s was canceled by the requester", domain.ErrConflict, req.ID)
			case domain.RequestStatusPending:
				pending = append(pending, req.ID)
			}
		}
		if len(pending) > 0 {
			if err := requests.UpdateStatuses(ctx, pending, domain.RequestStatusRejected); err != nil {
				return fmt.Errorf("reject requests: %w", err)
			}
		}
		for _, req := range batch {
			req.Status = domain.RequestStatusRejected
		}
		result.Rejected = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	for range pending {
		s.recorder.RequestResolved(domain.RequestStatusRejected)
	}
	return result, nil
}

// confirmInOrder confirms requests one at a time in caller order. The first request that finds
// the event full is rejected and the rest of the batch is left untouched; earlier confirmations
// stay committed and are returned alongside the error.
func (s *admissionService) confirmInOrder(ctx context.Context, event *domain.Event, ids []string) (*domain.StatusUpdateResult, error) {
	batch, err := loadBatch(ctx, s.requestRepo, event.ID, ids)
	if err != nil {
		return nil, err
	}
	for _, req := range batch {
		if req.Status == domain.RequestStatusRejected || req.Status == domain.RequestStatusCanceled {
			return nil, fmt.Errorf("%w: request %s is %s and cannot be confirmed", domain.ErrConflict, req.ID, req.Status)
		}
	}

	result := newResult()
	for _, req := range batch {
		resolved, err := s.confirmOne(ctx, event, req.ID)
		if err != nil {
			return result, fmt.Errorf("confirm request %s: %w", req.ID, err)
		}
		if resolved.Status == domain.RequestStatusRejected {
			result.Rejected = append(result.Rejected, resolved)
			s.recorder.LimitReached()
			s.logger.WarnContext(ctx, "participant limit reached",
				"event_id", event.ID, "request_id", resolved.ID, "limit", event.ParticipantLimit)
			return result, fmt.Errorf("%w: event %s accepts %d participants", domain.ErrParticipantLimitReached, event.ID, event.ParticipantLimit)
		}
		result.Confirmed = append(result.Confirmed, resolved)
	}
	return result, nil
}

// confirmOne runs the capacity check and the status write for one request in a single locked scope.
// The returned request is CONFIRMED, or REJECTED when the event was already full.
func (s *admissionService) confirmOne(ctx context.Context, event *domain.Event, requestID string) (*domain.ParticipationRequest, error) {
	var resolved *domain.ParticipationRequest
	written := false
	err := s.locker.WithEventLock(ctx, event.ID, func(ctx context.Context, requests domain.RequestRepository) error {
		current, err := requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		switch current.Status {
		case domain.RequestStatusConfirmed:
			resolved = current
			return nil
		case domain.RequestStatusPending:
		default:
			return fmt.Errorf("%w: request %s is %s and cannot be confirmed", domain.ErrConflict, current.ID, current.Status)
		}

		next := domain.RequestStatusConfirmed
		if !event.Unlimited() {
			confirmed, err := requests.CountByEventAndStatus(ctx, event.ID, domain.RequestStatusConfirmed)
			if err != nil {
				return fmt.Errorf("count confirmed: %w", err)
			}
			if confirmed >= event.ParticipantLimit {
				next = domain.RequestStatusRejected
			}
		}
		if err := requests.UpdateStatus(ctx, current.ID, next); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		current.Status = next
		resolved = current
		written = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if written {
		s.recorder.RequestResolved(resolved.Status)
	}
	return resolved, nil
}

// loadBatch returns the requests for ids in the same order, failing with ErrNotFound when an id
// is unknown or belongs to another event.
func loadBatch(ctx context.Context, requests domain.RequestRepository, eventID string, ids []string) ([]*domain.ParticipationRequest, error) {
	found, err := requests.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	byID := make(map[string]*domain.ParticipationRequest, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	batch := make([]*domain.ParticipationRequest, 0, len(ids))
	for _, id := range ids {
		req, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: request %s", domain.ErrNotFound, id)
		}
		if req.EventID != eventID {
			return nil, fmt.Errorf("%w: request %s does not belong to event %s", domain.ErrNotFound, id, eventID)
		}
		batch = append(batch, req)
	}
	return batch, nil
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func newResult() *domain.StatusUpdateResult {
	return &domain.StatusUpdateResult{
		Confirmed: []*domain.ParticipationRequest{},
		Rejected:  []*domain.ParticipationRequest{},
	}
}

type noopRecorder struct{}

func (noopRecorder) RequestResolved(domain.RequestStatus)              {}
func (noopRecorder) LimitReached()                                     {}
func (noopRecorder) BatchDuration(domain.RequestStatus, time.Duration) {}
func (noopRecorder) EventStateChanged(domain.EventState)               {}
