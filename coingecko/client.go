// Package coingecko is a thin client for the CoinGecko public REST
// API (v3). Only the endpoints the dashboard needs are wrapped; the
// free tier requires no authentication.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

type Client struct {
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) doJSON(ctx context.Context, p string, q map[string]string, out any) error {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	qq := u.Query()
	for k, v := range q {
		qq.Set(k, v)
	}
	u.RawQuery = qq.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Path: p, StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}

// APIError is a non-2xx response from CoinGecko. Handlers surface its
// body snippet as diagnostic detail.
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Markets returns coins ordered by market cap descending, one page of
// perPage entries, with 24h price change percentages included.
func (c *Client) Markets(ctx context.Context, vsCurrency string, perPage int) ([]Market, error) {
	if perPage <= 0 {
		perPage = 100
	}
	var out []Market
	err := c.doJSON(ctx, "/coins/markets", map[string]string{
		"vs_currency":             vsCurrency,
		"order":                   "market_cap_desc",
		"per_page":                strconv.Itoa(perPage),
		"page":                    "1",
		"sparkline":               "false",
		"price_change_percentage": "24h",
	}, &out)
	return out, err
}

// Global returns aggregate market statistics.
func (c *Client) Global(ctx context.Context) (*GlobalData, error) {
	var out globalEnvelope
	if err := c.doJSON(ctx, "/global", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Coin returns full details for a single coin. Localization, tickers
// and developer data are excluded to keep the payload small.
func (c *Client) Coin(ctx context.Context, id string) (*Coin, error) {
	var out Coin
	err := c.doJSON(ctx, "/coins/"+url.PathEscape(id), map[string]string{
		"localization":   "false",
		"tickers":        "false",
		"market_data":    "true",
		"community_data": "false",
		"developer_data": "false",
		"sparkline":      "false",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarketChart returns historical prices for a coin over the last days
// days. The free API picks the sampling interval itself.
func (c *Client) MarketChart(ctx context.Context, id string, days int) (*MarketChart, error) {
	var out MarketChart
	err := c.doJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", map[string]string{
		"vs_currency": "usd",
		"days":        strconv.Itoa(days),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
