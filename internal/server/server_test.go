package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/NewsDigest/internal/database"
	"github.com/TobiSchelling/NewsDigest/internal/digest"
	"github.com/TobiSchelling/NewsDigest/internal/market"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func storeDigest(t *testing.T, db *database.DB) *digest.Digest {
	t.Helper()
	d := digest.New(time.Date(2026, 2, 6, 7, 0, 0, 0, time.UTC))
	d.ArticleCount = 2
	d.Market["sp500"] = market.Snapshot{Identifier: "^GSPC", Last: 5100, Previous: 5000, PercentChange: 2}
	d.Sections["technology"] = []digest.SectionItem{
		{Title: "Chip exports slow", Link: "https://a.com/chips", Summary: "Shipments fell."},
	}
	d.SectionOrder = []string{"technology"}
	if err := db.SaveDigest(d); err != nil {
		t.Fatalf("SaveDigest: %v", err)
	}
	return d
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No digests yet") {
		t.Error("expected empty state in response body")
	}
}

func TestIndexListsDigests(t *testing.T) {
	db := openTestDB(t)
	storeDigest(t, db)
	srv, _ := New(db)

	body := get(t, srv, "/").Body.String()
	if !strings.Contains(body, "/digest/2026-02-06") {
		t.Error("expected link to stored digest")
	}
	if !strings.Contains(body, "Feb 06, 2026") {
		t.Error("expected formatted period")
	}
}

func TestDigestRoute(t *testing.T) {
	db := openTestDB(t)
	storeDigest(t, db)
	srv, _ := New(db)

	rec := get(t, srv, "/digest/2026-02-06")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Daily Digest: Feb 06, 2026</h1>") {
		t.Error("expected rendered markdown heading")
	}
	if !strings.Contains(body, `<a href="https://a.com/chips">Chip exports slow</a>`) {
		t.Error("expected rendered section link")
	}
	if !strings.Contains(body, "<table>") {
		t.Error("expected market table rendered as HTML")
	}
}

func TestDigestRouteMissing(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	rec := get(t, srv, "/digest/2026-01-01")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No digest for this date") {
		t.Error("expected missing-digest message")
	}
}

func TestDigestJSONRoute(t *testing.T) {
	db := openTestDB(t)
	d := storeDigest(t, db)
	srv, _ := New(db)

	rec := get(t, srv, "/digest/2026-02-06.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["run_id"] != d.RunID {
		t.Errorf("run_id = %v, want %s", body["run_id"], d.RunID)
	}

	if rec := get(t, srv, "/digest/2026-01-01.json"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing JSON, got %d", rec.Code)
	}
}

func TestLatestRedirect(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	rec := get(t, srv, "/latest")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("expected redirect to index when empty, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	storeDigest(t, db)
	rec = get(t, srv, "/latest")
	if rec.Header().Get("Location") != "/digest/2026-02-06" {
		t.Errorf("expected redirect to latest digest, got %s", rec.Header().Get("Location"))
	}
}

func TestStaticFiles(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	rec := get(t, srv, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	db := openTestDB(t)
	srv, _ := New(db)

	if rec := get(t, srv, "/nonexistent"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
