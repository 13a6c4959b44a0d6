package database

// DigestRecord is a stored digest with summary counts.
type DigestRecord struct {
	ID              int64
	RunID           string
	PeriodID        string
	GeneratedAt     string
	ArticleCount    int
	LikelyFakeCount int
	AlertCount      int
	BodyJSON        string
	BodyMarkdown    string
}

// MarketPoint is one stored market snapshot.
type MarketPoint struct {
	PeriodID      string
	Identifier    string
	Last          float64
	Previous      float64
	PercentChange float64
}

// Stats contains aggregate database statistics.
type Stats struct {
	Digests         int
	DaysWithDigests int
	ArticlesSeen    int
	LikelyFake      int
	MarketSnapshots int
}
