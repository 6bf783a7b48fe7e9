package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/maschat/masscoin-ledger/internal/api/problem"
)

// PublicRateLimiter limits unauthenticated routes per IP. Health probes and
// the swagger assets share this budget, so it should stay well above probe
// frequency.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithLimitHandler(limitHandler("public", rps, "this IP")),
	)
}

// AuthRateLimiter limits authenticated ledger operations per user ID, falling
// back to IP when the auth context is absent. Keying by user keeps one client
// behind a shared NAT from starving the rest.
func AuthRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID := UserIDFromContext(r.Context()); userID != "" {
				return userID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(limitHandler("auth", rps, "this user")),
	)
}

func limitHandler(scope string, rps int, subject string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		problem.Write(
			w,
			r,
			http.StatusTooManyRequests,
			problem.Type("rate-limit/"+scope),
			http.StatusText(http.StatusTooManyRequests),
			fmt.Sprintf("Rate limit of %d req/s exceeded for %s", rps, subject),
		)
	}
}
