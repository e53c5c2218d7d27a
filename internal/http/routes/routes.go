// Package routes wires the API endpoints to the market service, with
// a rate-limit tier per endpoint group.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/internal/config"
	appmw "github.com/briangreenhill/coinwatch/internal/http/middleware"
	"github.com/briangreenhill/coinwatch/internal/market"
	"github.com/briangreenhill/coinwatch/internal/obs"
	"github.com/briangreenhill/coinwatch/internal/ratelimit"
	"github.com/briangreenhill/coinwatch/kv"
)

type Server struct {
	Router  *chi.Mux
	Market  *market.Service
	Log     zerolog.Logger
	Metrics *obs.Metrics
}

type ServerOptions struct {
	Store   kv.Store
	Market  *market.Service
	Log     zerolog.Logger
	Metrics *obs.Metrics
	Limits  config.RateLimitConfig
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Market: opts.Market, Log: opts.Log, Metrics: opts.Metrics}

	limit := func(tier config.Tier, message string) func(http.Handler) http.Handler {
		l := ratelimit.New(opts.Store, ratelimit.Config{
			MaxRequests: tier.MaxRequests,
			Window:      tier.Window,
			Message:     message,
		}, opts.Log)
		return appmw.RateLimit(l, opts.Metrics, opts.Log)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			opts.Log.Error().Err(err).Msg("write health check response")
		}
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(ar chi.Router) {
		ar.With(limit(opts.Limits.Relaxed,
			"Rate limit exceeded. Please try again later.")).
			Get("/coins", s.handleTopCoins)

		ar.With(limit(opts.Limits.Detail,
			"Rate limit exceeded for coin detail API. Please try again later.")).
			Get("/coins/{id}", s.handleCoinDetail)

		ar.With(limit(opts.Limits.Standard,
			"Too many requests, please try again later.")).
			Get("/coins/{id}/history", s.handlePriceHistory)

		ar.With(limit(opts.Limits.Standard,
			"Too many requests, please try again later.")).
			Get("/market/overview", s.handleOverview)
	})

	return s
}
