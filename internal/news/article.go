package news

// Article is a single collected news item. ID is derived from Link and
// never set independently.
type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Group     string `json:"group,omitempty"`
}

// NewArticle builds an article and computes its ID from link.
func NewArticle(title, link, published, summary, group string) Article {
	return Article{
		ID:        ArticleID(link),
		Title:     title,
		Link:      link,
		Published: published,
		Summary:   summary,
		Group:     group,
	}
}
