package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const coinGeckoBaseURL = "https://api.coingecko.com"

// CoinGeckoProvider reads two days of USD prices for a coin.
type CoinGeckoProvider struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoProvider creates a provider. An empty baseURL uses the public API.
func NewCoinGeckoProvider(baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = coinGeckoBaseURL
	}
	return &CoinGeckoProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Quote compares the newest price with the oldest in the two-day window.
func (c *CoinGeckoProvider) Quote(ctx context.Context, coinID string) (Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v3/coins/%s/market_chart?vs_currency=usd&days=2",
		c.baseURL, url.PathEscape(coinID))

	var data struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := getJSON(ctx, c.client, endpoint, &data); err != nil {
		return Snapshot{}, fmt.Errorf("coingecko %s: %w", coinID, err)
	}

	if len(data.Prices) < 2 || len(data.Prices[0]) < 2 || len(data.Prices[len(data.Prices)-1]) < 2 {
		return Snapshot{}, fmt.Errorf("coingecko %s: %w", coinID, ErrUnavailable)
	}
	last := data.Prices[len(data.Prices)-1][1]
	prev := data.Prices[0][1]
	return NewSnapshot(coinID, last, prev)
}
