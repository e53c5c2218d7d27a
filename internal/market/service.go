// Package market assembles the dashboard's market-data views from the
// upstream CoinGecko API, reading through the shared cache so repeated
// dashboard loads do not burn through the upstream rate limits.
package market

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/cache"
	"github.com/briangreenhill/coinwatch/coingecko"
	"github.com/briangreenhill/coinwatch/internal/obs"
	"github.com/briangreenhill/coinwatch/kv"
)

// TTLs groups the cache lifetimes the service writes with.
type TTLs struct {
	// Medium is used for listings, details and the 1d history.
	Medium time.Duration
	// Long is used for multi-day histories, which change slowly.
	Long time.Duration
}

// DefaultTTLs matches the dashboard's cache policy: five minutes for
// live-ish views, thirty for historical charts.
func DefaultTTLs() TTLs {
	return TTLs{Medium: 5 * time.Minute, Long: 30 * time.Minute}
}

const DefaultTopCoinsLimit = 100

// Service is the market-data facade used by the HTTP handlers and the
// cache-warming worker.
type Service struct {
	store   kv.Store
	client  *coingecko.Client
	log     zerolog.Logger
	metrics *obs.Metrics
	ttls    TTLs
}

func NewService(store kv.Store, client *coingecko.Client, log zerolog.Logger, metrics *obs.Metrics, ttls TTLs) *Service {
	if ttls.Medium <= 0 || ttls.Long <= 0 {
		ttls = DefaultTTLs()
	}
	return &Service{store: store, client: client, log: log, metrics: metrics, ttls: ttls}
}

// TopCoins returns up to limit coins ordered by market cap.
func (s *Service) TopCoins(ctx context.Context, limit int) ([]CoinData, error) {
	if limit <= 0 {
		limit = DefaultTopCoinsLimit
	}
	key := cache.Key("coins", "markets", strconv.Itoa(limit))
	return cached(ctx, s, key, s.ttls.Medium, func(ctx context.Context) ([]CoinData, error) {
		return s.fetchTopCoins(ctx, limit)
	})
}

// CoinDetail returns the full view for one coin.
func (s *Service) CoinDetail(ctx context.Context, id string) (CoinDetail, error) {
	key := cache.Key("coin", id, "details")
	return cached(ctx, s, key, s.ttls.Medium, func(ctx context.Context) (CoinDetail, error) {
		return s.fetchCoinDetail(ctx, id)
	})
}

// PriceHistory returns price samples for a coin over rng, one of
// 1d/7d/30d/90d/1y. Unknown ranges fall back to 7d.
func (s *Service) PriceHistory(ctx context.Context, id, rng string) ([]PricePoint, error) {
	rng, days := normalizeRange(rng)

	// Multi-day histories barely move, so they get the long TTL to
	// spare the upstream quota.
	ttl := s.ttls.Long
	if rng == "1d" {
		ttl = s.ttls.Medium
	}

	key := cache.Key("coin", id, "history", rng)
	return cached(ctx, s, key, ttl, func(ctx context.Context) ([]PricePoint, error) {
		return s.fetchPriceHistory(ctx, id, days)
	})
}

// Overview returns the global market summary.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	return cached(ctx, s, cache.Key("market", "overview"), s.ttls.Medium, s.fetchOverview)
}

// RefreshTopCoins fetches fresh data and overwrites the cache entry
// even if an unexpired one exists. Used by the warming worker; errors
// propagate so the job can retry.
func (s *Service) RefreshTopCoins(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = DefaultTopCoinsLimit
	}
	coins, err := s.fetchTopCoins(ctx, limit)
	if err != nil {
		return err
	}
	return s.put(ctx, cache.Key("coins", "markets", strconv.Itoa(limit)), coins, s.ttls.Medium)
}

// RefreshOverview fetches a fresh market overview and overwrites the
// cache entry.
func (s *Service) RefreshOverview(ctx context.Context) error {
	ov, err := s.fetchOverview(ctx)
	if err != nil {
		return err
	}
	return s.put(ctx, cache.Key("market", "overview"), ov, s.ttls.Medium)
}

// cached funnels every read through the cache-aside layer and records
// the outcome. Free function because methods cannot be generic.
func cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, outcome, err := cache.GetOrFetch(ctx, s.store, s.log, key, ttl, fetch)
	s.metrics.ObserveCache(outcome.String())
	return v, err
}

func (s *Service) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, raw, ttl); err != nil {
		return err
	}
	s.log.Debug().Str("key", key).Dur("ttl", ttl).Msg("cache refreshed")
	return nil
}

func (s *Service) fetchTopCoins(ctx context.Context, limit int) ([]CoinData, error) {
	markets, err := s.client.Markets(ctx, "usd", limit)
	s.observeUpstream("markets", err)
	if err != nil {
		return nil, err
	}

	global, err := s.client.Global(ctx)
	s.observeUpstream("global", err)
	if err != nil {
		return nil, err
	}

	coins := make([]CoinData, 0, len(markets))
	for i, m := range markets {
		coins = append(coins, CoinData{
			ID:                  m.ID,
			Rank:                i + 1,
			Name:                m.Name,
			Symbol:              m.Symbol,
			Price:               m.CurrentPrice,
			MarketCap:           m.MarketCap,
			MarketCapPercentage: global.MarketCapPercentage[strings.ToLower(m.Symbol)],
			Volume:              m.TotalVolume,
			PriceChange24h:      m.PriceChangePercentage24h,
			Image:               m.Image,
		})
	}
	return coins, nil
}

func (s *Service) fetchCoinDetail(ctx context.Context, id string) (CoinDetail, error) {
	coin, err := s.client.Coin(ctx, id)
	s.observeUpstream("coin", err)
	if err != nil {
		return CoinDetail{}, err
	}

	md := coin.MarketData
	d := CoinDetail{
		ID:                       coin.ID,
		Rank:                     coin.MarketCapRank,
		Name:                     coin.Name,
		Symbol:                   coin.Symbol,
		Price:                    md.CurrentPrice["usd"],
		MarketCap:                md.MarketCap["usd"],
		MarketCapPercentage:      md.MarketCapChangePercentage24h,
		Volume:                   md.TotalVolume["usd"],
		PriceChange24h:           md.PriceChangePercentage24h,
		Image:                    coin.Image.Large,
		Description:              coin.Description["en"],
		MarketCapRank:            coin.MarketCapRank,
		High24h:                  md.High24h["usd"],
		Low24h:                   md.Low24h["usd"],
		PriceChangePercentage7d:  md.PriceChangePercentage7d,
		PriceChangePercentage30d: md.PriceChangePercentage30d,
		TotalSupply:              md.TotalSupply,
		CirculatingSupply:        md.CirculatingSupply,
		MaxSupply:                md.MaxSupply,
		ATHPrice:                 md.ATH["usd"],
		ATHDate:                  md.ATHDate["usd"],
		ATLPrice:                 md.ATL["usd"],
		ATLDate:                  md.ATLDate["usd"],
		Twitter:                  coin.Links.TwitterScreenName,
		Reddit:                   coin.Links.SubredditURL,
	}
	if len(coin.Links.Homepage) > 0 {
		d.Website = coin.Links.Homepage[0]
	}
	if gh := coin.Links.ReposURL.Github; len(gh) > 0 {
		d.Github = gh[0]
	}
	return d, nil
}

func (s *Service) fetchPriceHistory(ctx context.Context, id string, days int) ([]PricePoint, error) {
	chart, err := s.client.MarketChart(ctx, id, days)
	s.observeUpstream("market_chart", err)
	if err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		points = append(points, PricePoint{Timestamp: int64(p[0]), Price: p[1]})
	}
	return points, nil
}

func (s *Service) fetchOverview(ctx context.Context) (Overview, error) {
	global, err := s.client.Global(ctx)
	s.observeUpstream("global", err)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		TotalMarketCap:   global.TotalMarketCap["usd"],
		TotalVolume:      global.TotalVolume["usd"],
		BTCDominance:     global.MarketCapPercentage["btc"],
		ActiveCurrencies: global.ActiveCryptocurrencies,
		MarketCapChange:  global.MarketCapChangePercentage24hUSD,
	}, nil
}

func (s *Service) observeUpstream(endpoint string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveUpstream(endpoint, result)
}

// normalizeRange maps a requested range to its canonical form and day
// count, defaulting to 7d.
func normalizeRange(rng string) (string, int) {
	switch rng {
	case "1d":
		return "1d", 1
	case "7d":
		return "7d", 7
	case "30d":
		return "30d", 30
	case "90d":
		return "90d", 90
	case "1y":
		return "1y", 365
	default:
		return "7d", 7
	}
}
