package jobs

const (
	TaskRefreshTopCoins = "refresh:top_coins"
	TaskRefreshOverview = "refresh:market_overview"
)

type RefreshTopCoinsPayload struct {
	Limit int `json:"limit"`
}
