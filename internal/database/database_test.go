package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/NewsDigest/internal/classify"
	"github.com/TobiSchelling/NewsDigest/internal/digest"
	"github.com/TobiSchelling/NewsDigest/internal/market"
	"github.com/TobiSchelling/NewsDigest/internal/news"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDigest(at time.Time) *digest.Digest {
	d := digest.New(at)
	d.ArticleCount = 3
	d.Market["sp500"] = market.Snapshot{Identifier: "^GSPC", Last: 5100, Previous: 5000, PercentChange: 2}
	d.ColdWarAlerts = append(d.ColdWarAlerts, classify.ColdWarAlert{
		Article:         news.NewArticle("Sanctions widen", "https://a.com/1", "", "", ""),
		MatchedKeywords: []string{"sanctions"},
	})
	d.Sections["World"] = []digest.SectionItem{{Title: "Sanctions widen", Link: "https://a.com/1"}}
	d.SectionOrder = []string{"World"}
	return d
}

func TestSaveAndGetDigest(t *testing.T) {
	db := openTestDB(t)
	d := sampleDigest(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC))

	if err := db.SaveDigest(d); err != nil {
		t.Fatalf("SaveDigest: %v", err)
	}

	rec, err := db.GetDigest("2026-02-06")
	if err != nil {
		t.Fatalf("GetDigest: %v", err)
	}
	if rec == nil {
		t.Fatal("expected stored digest")
	}
	if rec.RunID != d.RunID {
		t.Errorf("run id = %q, want %q", rec.RunID, d.RunID)
	}
	if rec.ArticleCount != 3 || rec.AlertCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", rec.ArticleCount, rec.AlertCount)
	}
	if !strings.Contains(rec.BodyMarkdown, "Sanctions widen") {
		t.Error("markdown body missing section item")
	}

	back, err := rec.Digest()
	if err != nil {
		t.Fatalf("decoding stored body: %v", err)
	}
	if back.Market["sp500"].PercentChange != 2 {
		t.Errorf("market round trip lost data: %+v", back.Market)
	}
}

func TestGetDigestMissing(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.GetDigest("2026-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Error("expected nil for missing period")
	}
}

func TestGetDigestReturnsLatestRun(t *testing.T) {
	db := openTestDB(t)
	first := sampleDigest(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC))
	second := sampleDigest(time.Date(2026, 2, 6, 18, 0, 0, 0, time.UTC))
	db.SaveDigest(first)
	db.SaveDigest(second)

	rec, _ := db.GetDigest("2026-02-06")
	if rec == nil || rec.RunID != second.RunID {
		t.Errorf("expected latest run %s, got %+v", second.RunID, rec)
	}
}

func TestGetAllDigestsOnePerPeriod(t *testing.T) {
	db := openTestDB(t)
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC)))
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)))
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)))

	all, err := db.GetAllDigests()
	if err != nil {
		t.Fatalf("GetAllDigests: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(all))
	}
	if all[0].PeriodID != "2026-02-06" {
		t.Errorf("expected newest first, got %s", all[0].PeriodID)
	}

	last, _ := db.GetLastRunDate()
	if last != "2026-02-06" {
		t.Errorf("last run date = %q", last)
	}
}

func TestGetLastRunDateEmpty(t *testing.T) {
	db := openTestDB(t)
	last, err := db.GetLastRunDate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != "" {
		t.Errorf("expected empty, got %q", last)
	}
}

func TestMarketHistory(t *testing.T) {
	db := openTestDB(t)
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC)))
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)))

	points, err := db.GetMarketHistory("sp500", 10)
	if err != nil {
		t.Fatalf("GetMarketHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].PeriodID != "2026-02-06" || points[0].Identifier != "^GSPC" {
		t.Errorf("unexpected first point: %+v", points[0])
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.SaveDigest(sampleDigest(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC)))

	s, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.Digests != 1 || s.DaysWithDigests != 1 || s.ArticlesSeen != 3 || s.MarketSnapshots != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestFormatPeriodDisplay(t *testing.T) {
	if got := FormatPeriodDisplay("2026-02-06"); got != "Feb 06, 2026" {
		t.Errorf("got %q", got)
	}
	if got := FormatPeriodDisplay("latest"); got != "latest" {
		t.Errorf("got %q", got)
	}
}
