package controllers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventparticipation/internal/delivery/http/helpers"
	"eventparticipation/internal/domain"
)

// RequestSuccessResponse is the success envelope for endpoints returning one request.
type RequestSuccessResponse struct {
	Data  *domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// RequestListSuccessResponse is the success envelope for endpoints returning requests.
type RequestListSuccessResponse struct {
	Data  []*domain.ParticipationRequest `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

type RequestController struct {
	Logger  *slog.Logger
	Service domain.RequestService
}

func NewRequestController(logger *slog.Logger, svc domain.RequestService) *RequestController {
	return &RequestController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateRequest godoc
// @Summary Request to join an event
// @Description Creates a join request for a published event. It starts CONFIRMED when the event has no limit or no moderation, otherwise PENDING.
// @Tags requests
// @Produce json
// @Param userID path string true "Requester ID (UUID)"
// @Param eventId query string true "Event ID (UUID)"
// @Success 201 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (own event, not published, duplicate or full)"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/requests [post]
func (c *RequestController) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	eventID := r.URL.Query().Get("eventId")
	if _, err := uuid.Parse(eventID); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "eventId query parameter must be a UUID")
		return
	}
	req, err := c.Service.CreateRequest(r.Context(), userID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// ListUserRequests godoc
// @Summary List the user's join requests
// @Tags requests
// @Produce json
// @Param userID path string true "Requester ID (UUID)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/requests [get]
func (c *RequestController) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	reqs, err := c.Service.ListUserRequests(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reqs)
}

// CancelRequest godoc
// @Summary Cancel a pending join request
// @Tags requests
// @Produce json
// @Param userID path string true "Requester ID (UUID)"
// @Param requestID path string true "Request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (request already resolved)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/{userID}/requests/{requestID}/cancel [patch]
func (c *RequestController) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathUUID(w, r, "userID")
	if !ok {
		return
	}
	requestID, ok := helpers.PathUUID(w, r, "requestID")
	if !ok {
		return
	}
	req, err := c.Service.CancelRequest(r.Context(), userID, requestID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, req)
}
