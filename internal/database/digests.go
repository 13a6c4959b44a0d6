package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/NewsDigest/internal/digest"
)

const digestColumns = `id, run_id, period_id, generated_at, article_count, likely_fake_count,
	alert_count, body_json, body_markdown`

// SaveDigest stores a digest and its market snapshots in one transaction.
func (db *DB) SaveDigest(d *digest.Digest) error {
	body, err := d.JSON()
	if err != nil {
		return fmt.Errorf("encoding digest: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	periodID := d.PeriodID()
	alerts := len(d.ColdWarAlerts) + len(d.InvestorMentions) + len(d.MarketAlerts)
	if _, err := tx.Exec(
		`INSERT INTO digests
		(run_id, period_id, generated_at, article_count, likely_fake_count, alert_count, body_json, body_markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, periodID, d.GeneratedAt.UTC().Format(time.RFC3339), d.ArticleCount,
		d.LikelyFakeCount(), alerts, string(body), digest.Markdown(d),
	); err != nil {
		return fmt.Errorf("inserting digest: %w", err)
	}

	for key, s := range d.Market {
		if _, err := tx.Exec(
			`INSERT INTO market_snapshots
			(run_id, period_id, instrument, identifier, last, previous, percent_change)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.RunID, periodID, key, s.Identifier, s.Last, s.Previous, s.PercentChange,
		); err != nil {
			return fmt.Errorf("inserting market snapshot %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// GetDigest returns the most recent digest for a period, or nil.
func (db *DB) GetDigest(periodID string) (*DigestRecord, error) {
	row := db.conn.QueryRow(
		`SELECT `+digestColumns+` FROM digests WHERE period_id = ?
		ORDER BY generated_at DESC, id DESC LIMIT 1`, periodID,
	)
	return scanDigest(row)
}

// GetLatestDigest returns the newest stored digest, or nil.
func (db *DB) GetLatestDigest() (*DigestRecord, error) {
	row := db.conn.QueryRow(
		`SELECT ` + digestColumns + ` FROM digests ORDER BY generated_at DESC, id DESC LIMIT 1`,
	)
	return scanDigest(row)
}

// GetAllDigests returns the latest digest of each period, newest first.
func (db *DB) GetAllDigests() ([]DigestRecord, error) {
	rows, err := db.conn.Query(
		`SELECT ` + digestColumns + ` FROM digests d
		WHERE id = (SELECT id FROM digests d2 WHERE d2.period_id = d.period_id
			ORDER BY generated_at DESC, id DESC LIMIT 1)
		ORDER BY period_id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DigestRecord
	for rows.Next() {
		var r DigestRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.PeriodID, &r.GeneratedAt, &r.ArticleCount,
			&r.LikelyFakeCount, &r.AlertCount, &r.BodyJSON, &r.BodyMarkdown); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLastRunDate returns the period of the most recent digest, or "".
func (db *DB) GetLastRunDate() (string, error) {
	var periodID string
	err := db.conn.QueryRow("SELECT period_id FROM digests ORDER BY period_id DESC LIMIT 1").Scan(&periodID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return periodID, err
}

// GetMarketHistory returns up to limit stored snapshots for an instrument,
// newest first.
func (db *DB) GetMarketHistory(instrument string, limit int) ([]MarketPoint, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.conn.Query(
		`SELECT period_id, identifier, last, previous, percent_change
		FROM market_snapshots WHERE instrument = ?
		ORDER BY period_id DESC, id DESC LIMIT ?`, instrument, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarketPoint
	for rows.Next() {
		var p MarketPoint
		if err := rows.Scan(&p.PeriodID, &p.Identifier, &p.Last, &p.Previous, &p.PercentChange); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM digests", &s.Digests},
		{"SELECT COUNT(DISTINCT period_id) FROM digests", &s.DaysWithDigests},
		{"SELECT COALESCE(SUM(article_count), 0) FROM digests", &s.ArticlesSeen},
		{"SELECT COALESCE(SUM(likely_fake_count), 0) FROM digests", &s.LikelyFake},
		{"SELECT COUNT(*) FROM market_snapshots", &s.MarketSnapshots},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func scanDigest(row *sql.Row) (*DigestRecord, error) {
	var r DigestRecord
	if err := row.Scan(&r.ID, &r.RunID, &r.PeriodID, &r.GeneratedAt, &r.ArticleCount,
		&r.LikelyFakeCount, &r.AlertCount, &r.BodyJSON, &r.BodyMarkdown); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Digest decodes the stored JSON body.
func (r *DigestRecord) Digest() (*digest.Digest, error) {
	return digest.Parse([]byte(r.BodyJSON))
}
