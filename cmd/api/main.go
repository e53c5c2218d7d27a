// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/coinwatch/coingecko"
	"github.com/briangreenhill/coinwatch/internal/config"
	"github.com/briangreenhill/coinwatch/internal/http/routes"
	"github.com/briangreenhill/coinwatch/internal/market"
	"github.com/briangreenhill/coinwatch/internal/obs"
	"github.com/briangreenhill/coinwatch/kv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	var store kv.Store
	if cfg.RedisAddr != "" {
		rdb, err := kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		store = rdb
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis store")
	} else {
		store = kv.NewMemory()
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory store (single instance only)")
	}

	metrics := obs.NewMetrics()

	gecko := coingecko.New(coingecko.WithBaseURL(cfg.CoinGeckoBaseURL))
	svc := market.NewService(store, gecko, logger.With().Str("component", "market").Logger(), metrics, market.TTLs{
		Medium: cfg.Cache.Medium,
		Long:   cfg.Cache.Long,
	})

	s := routes.New(routes.ServerOptions{
		Store:   store,
		Market:  svc,
		Log:     logger,
		Metrics: metrics,
		Limits:  cfg.RateLimit,
	})

	h := hlog.NewHandler(logger)(s.Router)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	})(h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
