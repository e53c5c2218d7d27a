// Package ratelimit bounds per-client request rates using a counter in
// the shared store, so the limit holds across every app instance.
//
// The algorithm is a fixed window: the first request from a client
// creates a counter with the window as its TTL, later requests only
// increment it, and the window resets when the key expires. A client
// can therefore burst up to twice the limit across a window boundary;
// that is an accepted property of the scheme, not a bug.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/kv"
)

const keyPrefix = "rate-limit:"

// Config describes one rate-limit tier. Different endpoint groups use
// different tiers (see config.RateLimits).
type Config struct {
	// MaxRequests allowed per client within one window.
	MaxRequests int
	// Window is the length of the fixed counting window.
	Window time.Duration
	// Message is returned in the 429 body when the limit is exceeded.
	Message string
}

// Result is the decision for one request. Headers are populated from
// it on every counted request, allowed or not.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the current window expires.
	Reset time.Time
	// RetryAfter is only meaningful when the request was denied.
	RetryAfter time.Duration
	// FailedOpen is true when the store or the client key was
	// unavailable and the request was waved through uncounted.
	FailedOpen bool
}

// Limiter checks and counts requests against a Config using the shared
// store's atomic increment.
type Limiter struct {
	store kv.Store
	cfg   Config
	log   zerolog.Logger
}

// New returns a Limiter for the given tier.
func New(store kv.Store, cfg Config, log zerolog.Logger) *Limiter {
	return &Limiter{store: store, cfg: cfg, log: log}
}

// Config returns the tier this limiter enforces.
func (l *Limiter) Config() Config {
	return l.cfg
}

// failOpen is the decision used whenever the limiter cannot do its
// job: the request proceeds rather than being blocked on an
// infrastructure fault.
func (l *Limiter) failOpen() Result {
	return Result{Allowed: true, Limit: l.cfg.MaxRequests, FailedOpen: true}
}

// Check counts one request for clientKey and decides whether it may
// proceed. Denied requests still consume their increment, so hammering
// a limited endpoint does not help.
func (l *Limiter) Check(ctx context.Context, clientKey string) Result {
	if clientKey == "" {
		l.log.Warn().Msg("rate limit skipped: no client key")
		return l.failOpen()
	}

	key := keyPrefix + clientKey

	n, err := l.store.Incr(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("client", clientKey).Msg("rate limit skipped: store unavailable")
		return l.failOpen()
	}

	windowSecs := int64(l.cfg.Window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	// Only the increment that created the key sets the expiry; the
	// window is never extended afterwards.
	if n == 1 {
		if err := l.store.Expire(ctx, key, time.Duration(windowSecs)*time.Second); err != nil {
			l.log.Warn().Err(err).Str("client", clientKey).Msg("rate limit window expiry not set")
		}
	}

	// Remaining TTL is best effort, for header reporting only.
	remaining := time.Duration(windowSecs) * time.Second
	if ttl, ok, err := l.store.TTL(ctx, key); err == nil && ok {
		remaining = ttl
	}
	if remaining < time.Second {
		remaining = time.Second
	}

	res := Result{
		Allowed:   n <= int64(l.cfg.MaxRequests),
		Limit:     l.cfg.MaxRequests,
		Remaining: max(0, l.cfg.MaxRequests-int(n)),
		Reset:     time.Now().Add(remaining),
	}
	if !res.Allowed {
		res.RetryAfter = remaining
		l.log.Debug().
			Str("client", clientKey).
			Int64("count", n).
			Dur("retry_after", remaining).
			Msg("rate limit exceeded")
	}
	return res
}
