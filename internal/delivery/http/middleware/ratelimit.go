package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"eventparticipation/internal/delivery/http/helpers"
)

// Limiter decides whether one more call for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects calls over the limiter's budget with 429. The key is the {userID} path
// value. Limiter failures let the request through.
func RateLimit(limiter Limiter, logger *slog.Logger, retryAfter time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("userID")
		if limiter == nil || key == "" {
			next(w, r)
			return
		}
		ok, err := limiter.Allow(r.Context(), key)
		if err != nil {
			logger.WarnContext(r.Context(), "rate limiter unavailable", "user_id", key, "err", err)
			next(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeTooManyRequests, "too many requests, try again later")
			return
		}
		next(w, r)
	}
}
