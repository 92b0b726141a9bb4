package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond rps per second with 429. The burst equals
// rps. A non-positive rps disables limiting.
func RateLimit(rps int, logger *slog.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				seconds := int(delay.Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "request rate limited", "retry_after_seconds", seconds)
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests, errorResponse{ErrorCode: "rate_limited", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
