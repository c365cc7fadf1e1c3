package middleware

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"blog_backend/internal/common"
)

// RateLimiter counts hits per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit throttles requests per client address as recorded by
// ClientAddr. A nil limiter disables it, and limiter failures let the
// request through.
func RateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry, err := limiter.Allow(r.Context(), ClientAddrFromRequest(r))
			if err != nil {
				log.Printf("WARN: Rate limiter unavailable, allowing request: %v", err)
			}
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				common.RespondWithErr(w, common.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
