// Package digest defines the daily digest record and its file and Markdown
// renderings.
package digest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/NewsDigest/internal/classify"
	"github.com/TobiSchelling/NewsDigest/internal/corroborate"
	"github.com/TobiSchelling/NewsDigest/internal/market"
)

// SectionItem is one summarized article in a topic section.
type SectionItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
}

// Digest is the output of one pipeline run.
type Digest struct {
	RunID            string                     `json:"run_id"`
	GeneratedAt      time.Time                  `json:"generated_at"`
	Regions          []string                   `json:"regions,omitempty"`
	ArticleCount     int                        `json:"article_count"`
	FakeChecks       []corroborate.Verdict      `json:"fake_checks"`
	Market           map[string]market.Snapshot `json:"market"`
	MarketAlerts     []market.Alert             `json:"market_alerts"`
	ColdWarAlerts    []classify.ColdWarAlert    `json:"cold_war_alerts"`
	InvestorMentions []classify.InvestorAlert   `json:"major_investor_mentions"`
	Sections         map[string][]SectionItem   `json:"sections"`
	SectionOrder     []string                   `json:"section_order"`
}

// Store persists finished digests.
type Store interface {
	SaveDigest(d *Digest) error
}

// New returns an empty digest stamped with a fresh run ID and time.
func New(generatedAt time.Time) *Digest {
	return &Digest{
		RunID:            uuid.NewString(),
		GeneratedAt:      generatedAt.UTC(),
		FakeChecks:       []corroborate.Verdict{},
		Market:           map[string]market.Snapshot{},
		MarketAlerts:     []market.Alert{},
		ColdWarAlerts:    []classify.ColdWarAlert{},
		InvestorMentions: []classify.InvestorAlert{},
		Sections:         map[string][]SectionItem{},
		SectionOrder:     []string{},
	}
}

// PeriodID is the UTC date of the digest as YYYY-MM-DD.
func (d *Digest) PeriodID() string {
	return d.GeneratedAt.UTC().Format("2006-01-02")
}

// LikelyFakeCount returns the number of articles flagged as likely fake.
func (d *Digest) LikelyFakeCount() int {
	n := 0
	for _, v := range d.FakeChecks {
		if v.LikelyFake {
			n++
		}
	}
	return n
}

// JSON returns the indented JSON encoding of the digest.
func (d *Digest) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Parse decodes a digest previously produced by JSON.
func Parse(data []byte) (*Digest, error) {
	var d Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}
	return &d, nil
}

// SaveFile writes the digest as indented JSON to path.
func SaveFile(d *Digest, path string) error {
	data, err := d.JSON()
	if err != nil {
		return fmt.Errorf("encoding digest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	return nil
}
