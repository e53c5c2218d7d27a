package coingecko

// Market is one row of /coins/markets.
type Market struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

// GlobalData is the payload of /global.
type GlobalData struct {
	ActiveCryptocurrencies          int                `json:"active_cryptocurrencies"`
	TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
	TotalVolume                     map[string]float64 `json:"total_volume"`
	MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
	MarketCapChangePercentage24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
}

type globalEnvelope struct {
	Data GlobalData `json:"data"`
}

// Coin is the subset of /coins/{id} the dashboard uses.
type Coin struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	MarketCapRank int               `json:"market_cap_rank"`
	Description   map[string]string `json:"description"`
	Image         struct {
		Large string `json:"large"`
	} `json:"image"`
	Links struct {
		Homepage          []string `json:"homepage"`
		TwitterScreenName string   `json:"twitter_screen_name"`
		SubredditURL      string   `json:"subreddit_url"`
		ReposURL          struct {
			Github []string `json:"github"`
		} `json:"repos_url"`
	} `json:"links"`
	MarketData struct {
		CurrentPrice                  map[string]float64 `json:"current_price"`
		MarketCap                     map[string]float64 `json:"market_cap"`
		TotalVolume                   map[string]float64 `json:"total_volume"`
		High24h                       map[string]float64 `json:"high_24h"`
		Low24h                        map[string]float64 `json:"low_24h"`
		PriceChangePercentage24h      float64            `json:"price_change_percentage_24h"`
		PriceChangePercentage7d       float64            `json:"price_change_percentage_7d"`
		PriceChangePercentage30d      float64            `json:"price_change_percentage_30d"`
		MarketCapChangePercentage24h  float64            `json:"market_cap_change_percentage_24h"`
		TotalSupply                   *float64           `json:"total_supply"`
		CirculatingSupply             float64            `json:"circulating_supply"`
		MaxSupply                     *float64           `json:"max_supply"`
		ATH                           map[string]float64 `json:"ath"`
		ATHDate                       map[string]string  `json:"ath_date"`
		ATL                           map[string]float64 `json:"atl"`
		ATLDate                       map[string]string  `json:"atl_date"`
	} `json:"market_data"`
}

// MarketChart is the payload of /coins/{id}/market_chart. Each price
// point is a [timestamp_ms, price] pair.
type MarketChart struct {
	Prices [][2]float64 `json:"prices"`
}
