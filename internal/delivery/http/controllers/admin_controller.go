package controllers

import (
	"log/slog"
	"net/http"

	"eventparticipation/internal/delivery/http/helpers"
	"eventparticipation/internal/domain"
)

// ModerateEventRequest is the request body for PATCH /admin/events/{eventID}.
type ModerateEventRequest struct {
	StateAction string `json:"state_action" validate:"required,oneof=PUBLISH_EVENT REJECT_EVENT"`
}

type AdminController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewAdminController(logger *slog.Logger, svc domain.EventService) *AdminController {
	return &AdminController{Logger: logger, Service: svc}
}

// ModerateEvent godoc
// @Summary Publish or reject an event
// @Description PUBLISH_EVENT moves a PENDING event starting more than an hour from now to PUBLISHED. REJECT_EVENT cancels any event that is not published.
// @Tags admin
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ModerateEventRequest true "Admin action"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events/{eventID} [patch]
func (c *AdminController) ModerateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req ModerateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.ModerateEvent(r.Context(), eventID, domain.StateAction(req.StateAction))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
