package corroborate

import (
	"context"
	"log"
	"math"

	"github.com/TobiSchelling/NewsDigest/internal/llm"
	"github.com/TobiSchelling/NewsDigest/internal/news"
)

// EmbeddingMatcher matches titles whose embeddings have cosine similarity of
// at least Threshold. If the embedder fails, Fallback is used.
type EmbeddingMatcher struct {
	Embedder  llm.Embedder
	Threshold float64
	Fallback  Matcher
}

// Match implements Matcher.
func (e EmbeddingMatcher) Match(ctx context.Context, articles []news.Article) [][]int {
	fallback := e.Fallback
	if fallback == nil {
		fallback = PrefixMatcher{Tokens: DefaultPrefixTokens}
	}
	if e.Embedder == nil || len(articles) == 0 {
		return fallback.Match(ctx, articles)
	}

	titles := make([]string, len(articles))
	for i, a := range articles {
		titles[i] = a.Title
	}
	vectors, err := e.Embedder.Embed(ctx, titles)
	if err != nil || len(vectors) != len(articles) {
		log.Printf("Embedding matcher unavailable, using title prefix: %v", err)
		return fallback.Match(ctx, articles)
	}

	out := make([][]int, len(articles))
	for i := range articles {
		for j := i + 1; j < len(articles); j++ {
			if cosine(vectors[i], vectors[j]) >= e.Threshold {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
