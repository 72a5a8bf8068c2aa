package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventparticipation/internal/delivery/http/controllers"
	"eventparticipation/internal/delivery/http/helpers"
	"eventparticipation/internal/delivery/http/middleware"
)

// RouterOptions carries the optional pieces of the HTTP surface.
type RouterOptions struct {
	// Limiter throttles join-request creation per requester. Nil disables it.
	Limiter         middleware.Limiter
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

// NewRouter initializes the HTTP router with all application routes, wrapped in CORS and
// request logging.
func NewRouter(
	logger *slog.Logger,
	eventController *controllers.EventController,
	requestController *controllers.RequestController,
	adminController *controllers.AdminController,
	opts RouterOptions,
) http.Handler {
	mux := http.NewServeMux()

	// Organizer
	mux.HandleFunc("POST /users/{userID}/events", eventController.CreateEvent)
	mux.HandleFunc("GET /users/{userID}/events", eventController.ListUserEvents)
	mux.HandleFunc("GET /users/{userID}/events/{eventID}", eventController.GetUserEvent)
	mux.HandleFunc("PATCH /users/{userID}/events/{eventID}", eventController.UpdateEvent)
	mux.HandleFunc("GET /users/{userID}/events/{eventID}/requests", eventController.ListEventRequests)
	mux.HandleFunc("PATCH /users/{userID}/events/{eventID}/requests", eventController.ResolveEventRequests)

	// Requester
	mux.HandleFunc("POST /users/{userID}/requests",
		middleware.RateLimit(opts.Limiter, logger, opts.RateLimitWindow, requestController.CreateRequest))
	mux.HandleFunc("GET /users/{userID}/requests", requestController.ListUserRequests)
	mux.HandleFunc("PATCH /users/{userID}/requests/{requestID}/cancel", requestController.CancelRequest)

	// Admin
	mux.HandleFunc("PATCH /admin/events/{eventID}", adminController.ModerateEvent)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.LoggingMiddleware(logger, middleware.CORS(opts.AllowedOrigins, mux))
}
