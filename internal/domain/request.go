package domain

import (
	"context"
	"time"
)

// RequestStatus is the state of a participation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusConfirmed RequestStatus = "CONFIRMED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCanceled  RequestStatus = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s RequestStatus) IsTerminal() bool {
	return s != RequestStatusPending
}

// ParticipationRequest is a user's request to join an event.
// swagger:model ParticipationRequest
type ParticipationRequest struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event"`
	RequesterID string        `json:"requester"`
	Status      RequestStatus `json:"status"`
	Created     time.Time     `json:"created"`
}

// NewParticipationRequest creates a request in the given status. ID is typically set by the repository on create.
func NewParticipationRequest(eventID, requesterID string, status RequestStatus, created time.Time) *ParticipationRequest {
	return &ParticipationRequest{
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      status,
		Created:     created,
	}
}

// StatusUpdate is an organizer's decision on an ordered batch of requests.
type StatusUpdate struct {
	RequestIDs []string
	Status     RequestStatus
}

// StatusUpdateResult partitions a batch into requests that ended CONFIRMED and REJECTED.
// swagger:model StatusUpdateResult
type StatusUpdateResult struct {
	Confirmed []*ParticipationRequest `json:"confirmed_requests"`
	Rejected  []*ParticipationRequest `json:"rejected_requests"`
}

// Empty reports whether the batch changed or reported nothing.
func (r *StatusUpdateResult) Empty() bool {
	return r == nil || len(r.Confirmed) == 0 && len(r.Rejected) == 0
}

// RequestRepository defines storage operations for participation requests.
type RequestRepository interface {
	Create(ctx context.Context, req *ParticipationRequest) error
	GetByID(ctx context.Context, id string) (*ParticipationRequest, error)
	// ListByIDs returns the requests that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]*ParticipationRequest, error)
	ListByEventID(ctx context.Context, eventID string) ([]*ParticipationRequest, error)
	ListByRequesterID(ctx context.Context, requesterID string) ([]*ParticipationRequest, error)
	GetActiveByEventAndRequester(ctx context.Context, eventID, requesterID string) (*ParticipationRequest, error)
	CountByEventAndStatus(ctx context.Context, eventID string, status RequestStatus) (int, error)
	UpdateStatus(ctx context.Context, id string, status RequestStatus) error
	UpdateStatuses(ctx context.Context, ids []string, status RequestStatus) error
}

// EventLocker serializes work on a single event. fn runs with a RequestRepository whose
// reads and writes are part of the locked scope; everything fn persists is committed when
// fn returns nil and discarded otherwise. Returns ErrNotFound when the event does not exist.
type EventLocker interface {
	WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, requests RequestRepository) error) error
}

// CapacityCounter reports how many requests currently hold a slot.
type CapacityCounter interface {
	ConfirmedCount(ctx context.Context, eventID string) (int, error)
}

// AdmissionService resolves batches of pending requests against an event's capacity.
type AdmissionService interface {
	// ResolveBatch confirms or rejects requestIDs in order. When capacity runs out mid-batch it
	// returns BOTH the partial result (confirmations already committed plus the request that was
	// rejected for lack of room) and an error wrapping ErrParticipantLimitReached.
	//
	// Terminal members are not skipped. A reject batch holding a CONFIRMED or CANCELED request,
	// or a confirm batch holding a REJECTED or CANCELED request, fails with ErrConflict before
	// anything is written, also when the event has no capacity gate. Requests already in the
	// target status are reported without a write.
	ResolveBatch(ctx context.Context, eventID string, requestIDs []string, status RequestStatus) (*StatusUpdateResult, error)
}

// AdmissionRecorder receives admission outcomes for monitoring.
type AdmissionRecorder interface {
	RequestResolved(status RequestStatus)
	LimitReached()
	BatchDuration(status RequestStatus, d time.Duration)
}

// RequestService defines requester-facing operations on participation requests.
type RequestService interface {
	CreateRequest(ctx context.Context, requesterID, eventID string) (*ParticipationRequest, error)
	CancelRequest(ctx context.Context, requesterID, requestID string) (*ParticipationRequest, error)
	ListUserRequests(ctx context.Context, requesterID string) ([]*ParticipationRequest, error)
}
