package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/coinwatch/coingecko"
	"github.com/briangreenhill/coinwatch/kv"
)

const marketsJSON = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png",
   "current_price":50000,"market_cap":1000000000000,"market_cap_rank":1,
   "total_volume":30000000000,"price_change_percentage_24h":2.5},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png",
   "current_price":3000,"market_cap":400000000000,"market_cap_rank":2,
   "total_volume":15000000000,"price_change_percentage_24h":-1.2}
]`

const globalJSON = `{"data":{
  "active_cryptocurrencies":12345,
  "total_market_cap":{"usd":2000000000000},
  "total_volume":{"usd":90000000000},
  "market_cap_percentage":{"btc":51.3,"eth":17.2},
  "market_cap_change_percentage_24h_usd":1.8}}`

const coinJSON = `{
  "id":"bitcoin","symbol":"btc","name":"Bitcoin","market_cap_rank":1,
  "description":{"en":"Digital gold."},
  "image":{"large":"https://img/btc-large.png"},
  "links":{"homepage":["https://bitcoin.org",""],"twitter_screen_name":"bitcoin",
           "subreddit_url":"https://reddit.com/r/bitcoin",
           "repos_url":{"github":["https://github.com/bitcoin/bitcoin"]}},
  "market_data":{
    "current_price":{"usd":50000},"market_cap":{"usd":1000000000000},
    "total_volume":{"usd":30000000000},
    "high_24h":{"usd":51000},"low_24h":{"usd":49000},
    "price_change_percentage_24h":2.5,"price_change_percentage_7d":5.1,
    "price_change_percentage_30d":-3.3,"market_cap_change_percentage_24h":2.1,
    "total_supply":21000000,"circulating_supply":19500000,"max_supply":21000000,
    "ath":{"usd":69000},"ath_date":{"usd":"2021-11-10T14:24:11.849Z"},
    "atl":{"usd":67.81},"atl_date":{"usd":"2013-07-06T00:00:00.000Z"}}}`

const chartJSON = `{"prices":[[1700000000000,50000.5],[1700003600000,50500.25]]}`

// fakeUpstream serves canned CoinGecko responses and counts hits per
// path so tests can assert cache behavior.
func fakeUpstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/coins/markets", serve(marketsJSON))
	mux.HandleFunc("/global", serve(globalJSON))
	mux.HandleFunc("/coins/bitcoin/market_chart", serve(chartJSON))
	mux.HandleFunc("/coins/bitcoin", serve(coinJSON))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestService(t *testing.T, hits *atomic.Int64, store kv.Store) *Service {
	t.Helper()
	ts := fakeUpstream(t, hits)
	client := coingecko.New(
		coingecko.WithBaseURL(ts.URL),
		coingecko.WithHTTPClient(ts.Client()),
	)
	return NewService(store, client, zerolog.Nop(), nil, DefaultTTLs())
}

func TestTopCoinsMapping(t *testing.T) {
	var hits atomic.Int64
	svc := newTestService(t, &hits, kv.NewMemory())

	coins, err := svc.TopCoins(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, coins, 2)

	btc := coins[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, 1, btc.Rank)
	assert.Equal(t, 50000.0, btc.Price)
	assert.Equal(t, 51.3, btc.MarketCapPercentage, "dominance joined from /global by symbol")
	assert.Equal(t, 2.5, btc.PriceChange24h)

	eth := coins[1]
	assert.Equal(t, 2, eth.Rank)
	assert.Equal(t, 17.2, eth.MarketCapPercentage)
}

func TestTopCoinsSecondCallHitsCache(t *testing.T) {
	var hits atomic.Int64
	svc := newTestService(t, &hits, kv.NewMemory())
	ctx := context.Background()

	_, err := svc.TopCoins(ctx, 2)
	require.NoError(t, err)
	firstRound := hits.Load() // markets + global

	_, err = svc.TopCoins(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, firstRound, hits.Load(), "second call must not touch upstream")

	// A different limit is a different cache key.
	_, err = svc.TopCoins(ctx, 1)
	require.NoError(t, err)
	assert.Greater(t, hits.Load(), firstRound)
}

func TestCoinDetailMapping(t *testing.T) {
	var hits atomic.Int64
	svc := newTestService(t, &hits, kv.NewMemory())

	d, err := svc.CoinDetail(context.Background(), "bitcoin")
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", d.ID)
	assert.Equal(t, "Digital gold.", d.Description)
	assert.Equal(t, 51000.0, d.High24h)
	assert.Equal(t, 69000.0, d.ATHPrice)
	assert.Equal(t, "2021-11-10T14:24:11.849Z", d.ATHDate)
	assert.Equal(t, "https://bitcoin.org", d.Website)
	assert.Equal(t, "https://github.com/bitcoin/bitcoin", d.Github)
	require.NotNil(t, d.MaxSupply)
	assert.Equal(t, 21000000.0, *d.MaxSupply)
}

func TestPriceHistory(t *testing.T) {
	var hits atomic.Int64
	store := kv.NewMemory()
	svc := newTestService(t, &hits, store)
	ctx := context.Background()

	points, err := svc.PriceHistory(ctx, "bitcoin", "7d")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1700000000000), points[0].Timestamp)
	assert.Equal(t, 50000.5, points[0].Price)

	// Multi-day ranges use the long TTL.
	ttl, ok, err := store.TTL(ctx, "coin:bitcoin:history:7d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, ttl, 5*time.Minute)

	// Unknown ranges collapse onto the 7d entry, already cached.
	before := hits.Load()
	_, err = svc.PriceHistory(ctx, "bitcoin", "2weeks")
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load())
}

func TestOverviewMapping(t *testing.T) {
	var hits atomic.Int64
	svc := newTestService(t, &hits, kv.NewMemory())

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2000000000000.0, ov.TotalMarketCap)
	assert.Equal(t, 51.3, ov.BTCDominance)
	assert.Equal(t, 12345, ov.ActiveCurrencies)
	assert.Equal(t, 1.8, ov.MarketCapChange)
}

func TestRefreshOverwritesUnexpiredEntry(t *testing.T) {
	var hits atomic.Int64
	store := kv.NewMemory()
	svc := newTestService(t, &hits, store)
	ctx := context.Background()

	_, err := svc.TopCoins(ctx, 2)
	require.NoError(t, err)
	cached := hits.Load()

	// Refresh goes upstream even though the entry is still fresh.
	require.NoError(t, err)
	require.NoError(t, svc.RefreshTopCoins(ctx, 2))
	assert.Greater(t, hits.Load(), cached)

	// And the read path still serves from cache afterwards.
	after := hits.Load()
	_, err = svc.TopCoins(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, after, hits.Load())
}

func TestUpstreamErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := coingecko.New(coingecko.WithBaseURL(ts.URL), coingecko.WithHTTPClient(ts.Client()))
	store := kv.NewMemory()
	svc := NewService(store, client, zerolog.Nop(), nil, DefaultTTLs())

	_, err := svc.Overview(context.Background())
	require.Error(t, err)

	// Nothing may be cached on a failed fetch.
	_, ok, _ := store.Get(context.Background(), "market:overview")
	assert.False(t, ok)
}
