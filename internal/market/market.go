// Package market fetches price snapshots for configured instruments and
// flags moves above per-kind thresholds.
package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/NewsDigest/internal/config"
)

// ErrUnavailable is returned when a provider has no usable data.
var ErrUnavailable = errors.New("market data unavailable")

// Snapshot is the latest and previous close for one instrument.
type Snapshot struct {
	Identifier    string  `json:"identifier"`
	Last          float64 `json:"last"`
	Previous      float64 `json:"previous"`
	PercentChange float64 `json:"percent_change"`
}

// Alert flags an instrument whose move reached its threshold.
type Alert struct {
	Key           string  `json:"key"`
	Identifier    string  `json:"identifier"`
	Kind          string  `json:"kind"`
	PercentChange float64 `json:"percent_change"`
	Threshold     float64 `json:"threshold"`
}

// Provider returns a snapshot for an instrument identifier.
type Provider interface {
	Quote(ctx context.Context, identifier string) (Snapshot, error)
}

// NewSnapshot computes the percent change from previous to last, rounded to
// four decimal places.
func NewSnapshot(identifier string, last, previous float64) (Snapshot, error) {
	if previous == 0 || math.IsNaN(last) || math.IsNaN(previous) {
		return Snapshot{}, fmt.Errorf("%s: %w", identifier, ErrUnavailable)
	}
	l := decimal.NewFromFloat(last)
	p := decimal.NewFromFloat(previous)
	pct := l.Sub(p).Div(p).Mul(decimal.NewFromInt(100)).Round(4)
	return Snapshot{
		Identifier:    identifier,
		Last:          last,
		Previous:      previous,
		PercentChange: pct.InexactFloat64(),
	}, nil
}

// Service fetches every configured instrument through its named provider.
type Service struct {
	providers   map[string]Provider
	instruments []config.Instrument
	thresholds  map[string]float64
	timeout     time.Duration
}

// NewService creates a service. providers is keyed by the provider name used
// in configuration ("yahoo", "coingecko").
func NewService(cfg config.Market, providers map[string]Provider, timeout time.Duration) *Service {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		providers:   providers,
		instruments: cfg.Instruments,
		thresholds:  cfg.Thresholds,
		timeout:     timeout,
	}
}

// DefaultProviders returns the built-in HTTP providers.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		"yahoo":     NewYahooProvider(""),
		"coingecko": NewCoinGeckoProvider(""),
	}
}

// Snapshots quotes every instrument. Instruments without a provider or whose
// quote fails are left out.
func (s *Service) Snapshots(ctx context.Context) map[string]Snapshot {
	out := make(map[string]Snapshot)
	for _, inst := range s.instruments {
		p, ok := s.providers[inst.Provider]
		if !ok {
			log.Printf("No market provider %q for %s, skipping", inst.Provider, inst.Key)
			continue
		}

		qctx, cancel := context.WithTimeout(ctx, s.timeout)
		snap, err := p.Quote(qctx, inst.Identifier)
		cancel()
		if err != nil {
			log.Printf("Market quote for %s failed: %v", inst.Key, err)
			continue
		}
		out[inst.Key] = snap
	}
	return out
}

// Alerts returns one alert per snapshot whose absolute move is at least the
// threshold configured for its instrument kind. Order follows configuration.
func (s *Service) Alerts(snapshots map[string]Snapshot) []Alert {
	alerts := []Alert{}
	for _, inst := range s.instruments {
		snap, ok := snapshots[inst.Key]
		if !ok {
			continue
		}
		threshold, ok := s.thresholds[inst.Kind+"_move_pct"]
		if !ok || threshold <= 0 {
			continue
		}
		if math.Abs(snap.PercentChange) >= threshold {
			alerts = append(alerts, Alert{
				Key:           inst.Key,
				Identifier:    snap.Identifier,
				Kind:          inst.Kind,
				PercentChange: snap.PercentChange,
				Threshold:     threshold,
			})
		}
	}
	return alerts
}
