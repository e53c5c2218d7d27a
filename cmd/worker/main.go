// The worker keeps the hottest dashboard cache keys warm so most page
// loads are served from the store without touching CoinGecko. It
// requires Redis: asynq and the cache both live there.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/coingecko"
	"github.com/briangreenhill/coinwatch/internal/config"
	"github.com/briangreenhill/coinwatch/internal/jobs"
	"github.com/briangreenhill/coinwatch/internal/market"
	"github.com/briangreenhill/coinwatch/kv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	store, err := kv.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	gecko := coingecko.New(coingecko.WithBaseURL(cfg.CoinGeckoBaseURL))
	svc := market.NewService(store, gecko, logger, nil, market.TTLs{
		Medium: cfg.Cache.Medium,
		Long:   cfg.Cache.Long,
	})

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			"refresh": 10,
			"default": 5,
		},
	})

	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskRefreshTopCoins, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.RefreshTopCoinsPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad refresh payload")
			return err
		}
		return runRefresh(ctx, logger, "top_coins", func(ctx context.Context) error {
			return svc.RefreshTopCoins(ctx, p.Limit)
		})
	})

	mux.HandleFunc(jobs.TaskRefreshOverview, func(ctx context.Context, t *asynq.Task) error {
		return runRefresh(ctx, logger, "market_overview", svc.RefreshOverview)
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)
	every := fmt.Sprintf("@every %s", cfg.Worker.RefreshInterval)

	topPayload, _ := json.Marshal(jobs.RefreshTopCoinsPayload{Limit: cfg.Worker.TopCoinsLimit})
	if _, err := scheduler.Register(every, asynq.NewTask(jobs.TaskRefreshTopCoins, topPayload), asynq.Queue("refresh")); err != nil {
		logger.Fatal().Err(err).Msg("register top coins refresh")
	}
	if _, err := scheduler.Register(every, asynq.NewTask(jobs.TaskRefreshOverview, nil), asynq.Queue("refresh")); err != nil {
		logger.Fatal().Err(err).Msg("register overview refresh")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Fatal().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Dur("interval", cfg.Worker.RefreshInterval).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

// runRefresh wraps one warm-up with a correlatable run id and timing.
// Errors propagate so asynq retries with backoff; a refresh failure is
// harmless anyway since stale entries keep serving until expiry.
func runRefresh(ctx context.Context, logger zerolog.Logger, name string, fn func(context.Context) error) error {
	runID := uuid.NewString()
	start := time.Now()
	log := logger.With().Str("task", name).Str("run_id", runID).Logger()

	log.Info().Msg("refresh start")
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("refresh failed")
		return err
	}
	log.Info().Dur("duration", time.Since(start)).Msg("refresh done")
	return nil
}
