package database

import "time"

// GetToday returns today's date as YYYY-MM-DD in UTC, matching digest period IDs.
func GetToday() string {
	return time.Now().UTC().Format("2006-01-02")
}

// FormatPeriodDisplay formats a period_id for human-readable display,
// e.g. "Feb 06, 2026". Unparseable IDs are returned unchanged.
func FormatPeriodDisplay(periodID string) string {
	d, err := time.Parse("2006-01-02", periodID)
	if err != nil {
		return periodID
	}
	return d.Format("Jan 02, 2006")
}
