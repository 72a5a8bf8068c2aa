package domain

import (
	"context"
	"time"
)

// EventState is the moderation state of an event.
type EventState string

const (
	EventStatePending   EventState = "PENDING"
	EventStatePublished EventState = "PUBLISHED"
	EventStateCanceled  EventState = "CANCELED"
)

// Valid reports whether s is one of the known states.
func (s EventState) Valid() bool {
	switch s {
	case EventStatePending, EventStatePublished, EventStateCanceled:
		return true
	}
	return false
}

// StateAction is a requested state transition on an event.
type StateAction string

const (
	// Organizer actions.
	StateActionSendToReview StateAction = "SEND_TO_REVIEW"
	StateActionCancelReview StateAction = "CANCEL_REVIEW"

	// Admin actions.
	StateActionPublishEvent StateAction = "PUBLISH_EVENT"
	StateActionRejectEvent  StateAction = "REJECT_EVENT"
)

// MinLeadTime is how far ahead of "now" an event date must be when an organizer sets it.
const MinLeadTime = 2 * time.Hour

// MinPublishLeadTime is how far ahead of "now" an event must start for an admin to publish it.
const MinPublishLeadTime = time.Hour

// Location is the geographic point where the event takes place.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is an organizer-published happening with a bounded number of participants.
// swagger:model Event
type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        string     `json:"category_id"`
	InitiatorID       string     `json:"initiator_id"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	State             EventState `json:"state"`
	EventDate         time.Time  `json:"event_date"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on,omitempty"`
	ConfirmedRequests int        `json:"confirmed_requests"`
}

// NewEventInput carries the organizer-supplied fields for a new event.
type NewEventInput struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        string
	Location          Location
	Paid              bool
	ParticipantLimit  int
	RequestModeration *bool
	EventDate         time.Time
}

// NewEvent returns a PENDING event owned by initiatorID. ID is set by the repository on create.
func NewEvent(initiatorID string, in NewEventInput, createdOn time.Time) *Event {
	moderation := true
	if in.RequestModeration != nil {
		moderation = *in.RequestModeration
	}
	return &Event{
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		InitiatorID:       initiatorID,
		Location:          in.Location,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: moderation,
		State:             EventStatePending,
		EventDate:         in.EventDate,
		CreatedOn:         createdOn,
	}
}

// Unlimited reports whether admission to the event bypasses the capacity gate:
// either there is no limit or requests are not moderated.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0 || !e.RequestModeration
}

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *string
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	EventDate         *time.Time
	StateAction       *StateAction
}

// Apply merges the non-nil fields of p into e. State actions are not applied here.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Annotation != nil {
		e.Annotation = *p.Annotation
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
	if p.EventDate != nil {
		e.EventDate = *p.EventDate
	}
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByInitiatorID(ctx context.Context, initiatorID string, params PaginationParams) ([]*Event, error)
	// Update overwrites every mutable column of the event in a single statement, provided the
	// stored state still equals expected. A missing event is ErrNotFound; a state that moved
	// since the caller read it is ErrConflict and nothing is written.
	Update(ctx context.Context, event *Event, expected EventState) error
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// EventService is the event lifecycle: creation, organizer edits, admin moderation and
// the organizer-facing views of an event's join requests.
type EventService interface {
	CreateEvent(ctx context.Context, initiatorID string, in NewEventInput) (*Event, error)
	UpdateEventByUser(ctx context.Context, initiatorID, eventID string, patch EventPatch) (*Event, error)
	ListUserEvents(ctx context.Context, initiatorID string, params PaginationParams) ([]*Event, error)
	GetUserEvent(ctx context.Context, initiatorID, eventID string) (*Event, error)
	ListEventRequests(ctx context.Context, initiatorID, eventID string) ([]*ParticipationRequest, error)
	// ResolveEventRequests checks ownership and hands the batch to the AdmissionService.
	// See AdmissionService.ResolveBatch for the partial-result contract.
	ResolveEventRequests(ctx context.Context, initiatorID, eventID string, update StatusUpdate) (*StatusUpdateResult, error)
	ModerateEvent(ctx context.Context, eventID string, action StateAction) (*Event, error)
}

// LifecycleRecorder receives event state transitions for monitoring.
type LifecycleRecorder interface {
	EventStateChanged(to EventState)
}
