package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	yahooBaseURL     = "https://query1.finance.yahoo.com"
	maxResponseBytes = 1 << 20
)

// YahooProvider reads daily closes from the Yahoo Finance chart API.
type YahooProvider struct {
	baseURL string
	client  *http.Client
}

// NewYahooProvider creates a provider. An empty baseURL uses Yahoo's public host.
func NewYahooProvider(baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Quote compares the last two daily closes of symbol.
func (y *YahooProvider) Quote(ctx context.Context, symbol string) (Snapshot, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", y.baseURL, url.PathEscape(symbol))

	var data struct {
		Chart struct {
			Result []struct {
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := getJSON(ctx, y.client, endpoint, &data); err != nil {
		return Snapshot{}, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return Snapshot{}, fmt.Errorf("yahoo %s: %w", symbol, ErrUnavailable)
	}

	var closes []float64
	for _, c := range data.Chart.Result[0].Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	if len(closes) < 2 {
		return Snapshot{}, fmt.Errorf("yahoo %s: %w", symbol, ErrUnavailable)
	}
	return NewSnapshot(symbol, closes[len(closes)-1], closes[len(closes)-2])
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
