package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventparticipation/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeTooManyRequests = "too_many_requests"
	ErrCodeInternalError   = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// Usually exactly one of Data and Error is set. A request batch that ran out of
// capacity part way sets both: Data holds what was already decided.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, data, nil)
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, nil, &APIError{Code: code, Message: message})
}

// WriteJSON writes the envelope with both fields as given.
func WriteJSON(w http.ResponseWriter, statusCode int, data any, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: apiErr})
}

// StatusForError maps a service error to an HTTP status and error code.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// WriteServiceError writes err with the status from StatusForError. Unexpected errors are
// logged and their message is not exposed.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	WriteServiceResult(w, r, logger, nil, err)
}

// WriteServiceResult writes an error response that also carries data, for operations that
// return a partial result together with the error.
func WriteServiceResult(w http.ResponseWriter, r *http.Request, logger *slog.Logger, data any, err error) {
	status, code := StatusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		msg = "internal server error"
	}
	WriteJSON(w, status, data, &APIError{Code: code, Message: msg})
}
