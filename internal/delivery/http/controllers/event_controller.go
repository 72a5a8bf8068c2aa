package controllers

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"eventparticipation/internal/delivery/http/helpers"
	"eventparticipation/internal/domain"
)

// LocationDTO is a geographic point in request bodies.
type LocationDTO struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (l *LocationDTO) toDomain() *domain.Location {
	if l == nil {
		return nil
	}
	return &domain.Location{Lat: l.Lat, Lon: l.Lon}
}

// CreateEventRequest is the request body for POST /users/{userID}/events.
type CreateEventRequest struct {
	Title             string      `json:"title" validate:"required,max=120"`
	Annotation        string      `json:"annotation" validate:"required,max=2000"`
	Description       string      `json:"description" validate:"required,max=7000"`
	Category          string      `json:"category" validate:"required,uuid"`
	Location          LocationDTO `json:"location"`
	Paid              bool        `json:"paid"`
	ParticipantLimit  int         `json:"participant_limit" validate:"gte=0"`
	RequestModeration *bool       `json:"request_moderation"`
	EventDate         time.Time   `json:"event_date" validate:"required"`
}

// Validate rejects whitespace-only text. The two hour lead time is checked by the service.
func (c CreateEventRequest) Validate() []string {
	return notBlank(map[string]*string{
		"title":       &c.Title,
		"annotation":  &c.Annotation,
		"description": &c.Description,
	})
}

func (c CreateEventRequest) toInput() domain.NewEventInput {
	return domain.NewEventInput{
		Title:             strings.TrimSpace(c.Title),
		Annotation:        strings.TrimSpace(c.Annotation),
		Description:       strings.TrimSpace(c.Description),
		CategoryID:        c.Category,
		Location:          *c.Location.toDomain(),
		Paid:              c.Paid,
		ParticipantLimit:  c.ParticipantLimit,
		RequestModeration: c.RequestModeration,
		EventDate:         c.EventDate,
	}
}

// notBlank reports set fields that hold only whitespace, in field name order.
func notBlank(fields map[string]*string) []string {
	var errs []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if v := fields[name]; v != nil && *v != "" && strings.TrimSpace(*v) == "" {
			errs = append(errs, name+" must not be blank")
		}
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /users/{userID}/events/{eventID}.
// All fields are optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title             *string      `json:"title" validate:"omitnil,min=1,max=120"`
	Annotation        *string      `json:"annotation" validate:"omitnil,min=1,max=2000"`
	Description       *string      `json:"description" validate:"omitnil,min=1,max=7000"`
	Category          *string      `json:"category" validate:"omitnil,uuid"`
	Location          *LocationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participant_limit" validate:"omitnil,gte=0"`
	RequestModeration *bool        `json:"request_moderation"`
	EventDate         *time.Time   `json:"event_date"`
	StateAction       *string      `json:"state_action" validate:"omitnil,oneof=SEND_TO_REVIEW CANCEL_REVIEW"`
}

// Validate rejects whitespace-only text.
func (u UpdateEventRequest) Validate() []string {
	return notBlank(map[string]*string{
		"title":       u.Title,
		"annotation":  u.Annotation,
		"description": u.Description,
	})
}

func (u UpdateEventRequest) toPatch() domain.EventPatch {
	p := domain.EventPatch{
		Title:             trimmed(u.Title),
		Annotation:        trimmed(u.Annotation),
		Description:       trimmed(u.Description),
		CategoryID:        u.Category,
		Location:          u.Location.toDomain(),
		Paid:              u.Paid,
		ParticipantLimit:  u.ParticipantLimit,
		RequestModeration: u.RequestModeration,
		EventDate:         u.EventDate,
	}
	if u.StateAction != nil {
		a := domain.StateAction(*u.StateAction)
		p.StateAction = &a
	}
	return p
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// StatusUpdateRequest is the request body for PATCH /users/{userID}/events/{eventID}/requests.
type StatusUpdateRequest struct {
	RequestIDs []string `json:"request_ids" validate:"dive,uuid"`
	Status     string   `json:"status" validate:"required,oneof=CONFIRMED REJECTED"`
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success envelope for endpoints returning events.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// StatusUpdateResponse is the envelope for a resolved request batch. On a 409 caused by
// the participant limit, data still lists what was decided before capacity ran out.
type StatusUpdateResponse struct {
	Data  *domain.StatusUpdateResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event in PENDING state owned by the user. event_date must be more than two hours ahead.
// @Tags events
// @Accept json
// @Produce json
// @Param userID path string true "User ID (UUID)"
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (user or category)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), userID, req.toInput())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListUserEvents godoc
// @Summary List the user's events
// @Tags events
// @Produce json
// @Param userID path string true "User ID (UUID)"
// @Param from query int false "Rows to skip" default(0)
// @Param size query int false "Page size (max 100)" default(10)
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events [get]
func (c *EventController) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	events, err := c.Service.ListUserEvents(r.Context(), userID, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetUserEvent godoc
// @Summary Get one of the user's events
// @Tags events
// @Produce json
// @Param userID path string true "User ID (UUID)"
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events/{eventID} [get]
func (c *EventController) GetUserEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetUserEvent(r.Context(), userID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partial update by the organizer. Published events cannot be changed (409). state_action may be SEND_TO_REVIEW or CANCEL_REVIEW.
// @Tags events
// @Accept json
// @Produce json
// @Param userID path string true "User ID (UUID)"
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event is published)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEventByUser(r.Context(), userID, eventID, req.toPatch())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEventRequests godoc
// @Summary List join requests for an event
// @Tags requests
// @Produce json
// @Param userID path string true "Organizer ID (UUID)"
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events/{eventID}/requests [get]
func (c *EventController) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	reqs, err := c.Service.ListEventRequests(r.Context(), userID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reqs)
}

// ResolveEventRequests godoc
// @Summary Confirm or reject join requests
// @Description Resolves the listed requests in order. Rejecting fails as a whole (409) if any request is already confirmed. Confirming stops at the first request that finds the event full: that request is rejected, the call returns 409, and data lists the requests confirmed before it.
// @Tags requests
// @Accept json
// @Produce json
// @Param userID path string true "Organizer ID (UUID)"
// @Param eventID path string true "Event ID (UUID)"
// @Param body body StatusUpdateRequest true "Request ids and target status"
// @Success 200 {object} controllers.StatusUpdateResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} controllers.StatusUpdateResponse "error.code: conflict; data set when capacity ran out part way"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/events/{eventID}/requests [patch]
func (c *EventController) ResolveEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := userAndEvent(w, r)
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.ResolveEventRequests(r.Context(), userID, eventID, domain.StatusUpdate{
		RequestIDs: req.RequestIDs,
		Status:     domain.RequestStatus(req.Status),
	})
	if err != nil {
		if !result.Empty() {
			helpers.WriteServiceResult(w, r, c.Logger, result, err)
			return
		}
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

func userAndEvent(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return "", "", false
	}
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return "", "", false
	}
	return userID, eventID, true
}
