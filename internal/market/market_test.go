package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TobiSchelling/NewsDigest/internal/config"
)

type mockProvider struct {
	snaps map[string]Snapshot
}

func (m *mockProvider) Quote(_ context.Context, id string) (Snapshot, error) {
	s, ok := m.snaps[id]
	if !ok {
		return Snapshot{}, ErrUnavailable
	}
	return s, nil
}

func TestNewSnapshot(t *testing.T) {
	s, err := NewSnapshot("^GSPC", 105, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PercentChange != 5 {
		t.Errorf("expected 5%%, got %v", s.PercentChange)
	}

	s, _ = NewSnapshot("x", 1, 3)
	if s.PercentChange != -66.6667 {
		t.Errorf("expected -66.6667, got %v", s.PercentChange)
	}

	if _, err := NewSnapshot("x", 1, 0); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for zero previous, got %v", err)
	}
}

func TestYahooQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/^GSPC" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"chart":{"result":[{"indicators":{"quote":[{"close":[90,100,null,110]}]}}]}}`)
	}))
	defer srv.Close()

	s, err := NewYahooProvider(srv.URL).Quote(context.Background(), "^GSPC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Last != 110 || s.Previous != 100 || s.PercentChange != 10 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestYahooQuoteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[]}}`)
	}))
	defer srv.Close()

	_, err := NewYahooProvider(srv.URL).Quote(context.Background(), "IBOV")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestCoinGeckoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vs_currency") != "usd" {
			t.Error("expected usd quote")
		}
		fmt.Fprint(w, `{"prices":[[1,50000],[2,51000],[3,46000]]}`)
	}))
	defer srv.Close()

	s, err := NewCoinGeckoProvider(srv.URL).Quote(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Last != 46000 || s.Previous != 50000 || s.PercentChange != -8 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestCoinGeckoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewCoinGeckoProvider(srv.URL).Quote(context.Background(), "bitcoin"); err == nil {
		t.Error("expected error on 429")
	}
}

func TestServiceOmitsFailures(t *testing.T) {
	cfg := config.Market{
		Instruments: []config.Instrument{
			{Key: "sp500", Provider: "mock", Identifier: "^GSPC", Kind: "stock"},
			{Key: "gold", Provider: "alphavantage", Identifier: "XAUUSD", Kind: "gold"},
			{Key: "ibov", Provider: "mock", Identifier: "IBOV", Kind: "stock"},
		},
	}
	mock := &mockProvider{snaps: map[string]Snapshot{"^GSPC": {Identifier: "^GSPC", Last: 1, Previous: 1}}}
	svc := NewService(cfg, map[string]Provider{"mock": mock}, 0)

	got := svc.Snapshots(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(got))
	}
	if _, ok := got["sp500"]; !ok {
		t.Error("expected sp500 snapshot")
	}
}

func TestServiceAlerts(t *testing.T) {
	cfg := config.Market{
		Instruments: []config.Instrument{
			{Key: "sp500", Kind: "stock"},
			{Key: "bitcoin", Kind: "crypto"},
			{Key: "gold", Kind: "gold"},
			{Key: "other", Kind: "bond"},
		},
		Thresholds: map[string]float64{"stock_move_pct": 5, "crypto_move_pct": 8, "gold_move_pct": 2},
	}
	svc := NewService(cfg, nil, 0)
	alerts := svc.Alerts(map[string]Snapshot{
		"sp500":   {Identifier: "^GSPC", PercentChange: -5},
		"bitcoin": {Identifier: "bitcoin", PercentChange: 7.9},
		"gold":    {Identifier: "XAU", PercentChange: 2.5},
		"other":   {Identifier: "TLT", PercentChange: 40},
	})
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].Key != "sp500" || alerts[0].Threshold != 5 {
		t.Errorf("unexpected first alert %+v", alerts[0])
	}
	if alerts[1].Key != "gold" {
		t.Errorf("unexpected second alert %+v", alerts[1])
	}
}
