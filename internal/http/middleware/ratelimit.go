// Package middleware holds the HTTP middleware applied to the API
// routes.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/internal/obs"
	"github.com/briangreenhill/coinwatch/internal/ratelimit"
)

const defaultLimitMessage = "Too many requests, please try again later."

// RateLimit enforces the given limiter per client IP. Every counted
// request gets X-RateLimit-* headers; a denied request gets a 429 with
// a JSON body. When the client address or the store is unavailable the
// request passes through uncounted and unheadered.
func RateLimit(limiter *ratelimit.Limiter, metrics *obs.Metrics, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ip == "" {
				log.Warn().Str("path", r.URL.Path).Msg("rate limit skipped: client address unknown")
			}

			res := limiter.Check(r.Context(), ip)
			if res.FailedOpen {
				metrics.ObserveRateLimit("fail_open")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", res.Reset.UTC().Format(time.RFC3339))

			if !res.Allowed {
				metrics.ObserveRateLimit("denied")
				msg := limiter.Config().Message
				if msg == "" {
					msg = defaultLimitMessage
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":      msg,
					"retryAfter": int(res.RetryAfter / time.Second),
				})
				return
			}

			metrics.ObserveRateLimit("allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For entry so limits apply to
// the real client behind a proxy, falling back to the transport peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare address in tests.
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
