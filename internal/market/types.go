package market

// CoinData is one row of the dashboard's top-coins table.
type CoinData struct {
	ID                  string  `json:"id"`
	Rank                int     `json:"rank"`
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	Price               float64 `json:"price"`
	MarketCap           float64 `json:"marketCap"`
	MarketCapPercentage float64 `json:"marketCapPercentage"`
	Volume              float64 `json:"volume"`
	PriceChange24h      float64 `json:"priceChange24h"`
	Image               string  `json:"image"`
}

// CoinDetail is the full per-coin view.
type CoinDetail struct {
	ID                       string   `json:"id"`
	Rank                     int      `json:"rank"`
	Name                     string   `json:"name"`
	Symbol                   string   `json:"symbol"`
	Price                    float64  `json:"price"`
	MarketCap                float64  `json:"marketCap"`
	MarketCapPercentage      float64  `json:"marketCapPercentage"`
	Volume                   float64  `json:"volume"`
	PriceChange24h           float64  `json:"priceChange24h"`
	Image                    string   `json:"image"`
	Description              string   `json:"description"`
	MarketCapRank            int      `json:"marketCapRank"`
	High24h                  float64  `json:"high24h"`
	Low24h                   float64  `json:"low24h"`
	PriceChangePercentage7d  float64  `json:"priceChangePercentage7d"`
	PriceChangePercentage30d float64  `json:"priceChangePercentage30d"`
	TotalSupply              *float64 `json:"totalSupply"`
	CirculatingSupply        float64  `json:"circulatingSupply"`
	MaxSupply                *float64 `json:"maxSupply"`
	ATHPrice                 float64  `json:"athPrice"`
	ATHDate                  string   `json:"athDate"`
	ATLPrice                 float64  `json:"atlPrice"`
	ATLDate                  string   `json:"atlDate"`
	Website                  string   `json:"website"`
	Twitter                  string   `json:"twitter,omitempty"`
	Reddit                   string   `json:"reddit,omitempty"`
	Github                   string   `json:"github,omitempty"`
}

// PricePoint is one sample of a coin's price history. Timestamp is
// unix milliseconds, matching what the chart component consumes.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// Overview summarizes the whole market for the dashboard header.
type Overview struct {
	TotalMarketCap   float64 `json:"totalMarketCap"`
	TotalVolume      float64 `json:"totalVolume"`
	BTCDominance     float64 `json:"btcDominance"`
	ActiveCurrencies int     `json:"activeCurrencies"`
	MarketCapChange  float64 `json:"marketCapChange"`
}
