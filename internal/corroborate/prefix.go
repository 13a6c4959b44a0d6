package corroborate

import (
	"context"
	"strings"

	"github.com/TobiSchelling/NewsDigest/internal/news"
)

const DefaultPrefixTokens = 5

// PrefixMatcher treats two articles as the same story when the first Tokens
// lower-cased words of their titles are identical. Shorter titles compare on
// the words they have.
type PrefixMatcher struct {
	Tokens int
}

// Match implements Matcher.
func (p PrefixMatcher) Match(_ context.Context, articles []news.Article) [][]int {
	n := p.Tokens
	if n <= 0 {
		n = DefaultPrefixTokens
	}

	byKey := make(map[string][]int)
	keys := make([]string, len(articles))
	for i, a := range articles {
		keys[i] = TitleKey(a.Title, n)
		byKey[keys[i]] = append(byKey[keys[i]], i)
	}

	out := make([][]int, len(articles))
	for i := range articles {
		for _, j := range byKey[keys[i]] {
			if j != i {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}

// TitleKey returns the first n whitespace-separated lower-cased tokens of
// title joined by single spaces.
func TitleKey(title string, n int) string {
	tokens := strings.Fields(strings.ToLower(title))
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
