package corroborate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/TobiSchelling/NewsDigest/internal/news"
)

var factCheck = []string{"snopes.com", "factcheck.org", "reuters.com", "apnews.com", "fullfact.org", "aosfatos.org.br"}

func article(title, link string) news.Article {
	return news.NewArticle(title, link, "", "", "")
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Fed Raises Rates Again Today amid inflation", "fed raises rates again today"},
		{"  Fed   raises rates  ", "fed raises rates"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleKey(tt.title, 5); got != tt.want {
			t.Errorf("TitleKey(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestFactCheckMatchClearsBothArticles(t *testing.T) {
	articles := []news.Article{
		article("Fed raises rates again today", "https://www.reuters.com/a"),
		article("Fed raises rates again today as markets slide", "https://blogspot.com/b"),
	}
	e := NewEngine(nil, factCheck)
	v := e.Check(context.Background(), articles)

	if v[1].LikelyFake || v[1].Notes != NoteFactCheck {
		t.Errorf("blog entry: expected fact-check note, got %+v", v[1])
	}
	if v[1].CorroborationCount != 1 {
		t.Errorf("blog entry: expected 1 match, got %d", v[1].CorroborationCount)
	}
	// Reuters itself only matches the blog, so it is corroborated rather than fact-checked.
	if v[0].LikelyFake || v[0].Notes != "Corroborated by 1 sources." {
		t.Errorf("reuters entry: unexpected verdict %+v", v[0])
	}
}

func TestShorterTitleComparesTruncatedLists(t *testing.T) {
	// Four tokens against five: the truncated lists differ, so no match.
	articles := []news.Article{
		article("Fed raises rates again", "https://reuters.com/a"),
		article("Fed raises rates again today", "https://blogspot.com/b"),
	}
	v := NewEngine(nil, factCheck).Check(context.Background(), articles)
	for i := range v {
		if v[i].CorroborationCount != 0 {
			t.Errorf("article %d: expected no matches, got %d", i, v[i].CorroborationCount)
		}
	}
	if !v[0].LikelyFake || !v[1].LikelyFake {
		t.Error("expected both single-source articles outside news domains to be flagged")
	}

	// Equal short titles still match.
	short := []news.Article{
		article("Markets rally", "https://a.net/1"),
		article("markets RALLY", "https://b.net/2"),
	}
	v = NewEngine(nil, factCheck).Check(context.Background(), short)
	if v[0].CorroborationCount != 1 || v[1].CorroborationCount != 1 {
		t.Errorf("expected short titles to match, got %+v", v)
	}
}

func TestSingleSourceRandomBlog(t *testing.T) {
	v := NewEngine(nil, factCheck).Check(context.Background(), []news.Article{
		article("Aliens land in Ohio", "https://randomblog.net/post"),
	})
	if !v[0].LikelyFake || v[0].Notes != NoteSingleSource {
		t.Errorf("expected likely fake, got %+v", v[0])
	}
}

func TestSingleSourceNewsDomain(t *testing.T) {
	v := NewEngine(nil, factCheck).Check(context.Background(), []news.Article{
		article("Local election results", "https://examplenews.com/story"),
	})
	if v[0].LikelyFake || v[0].Notes != NoteNewsDomain {
		t.Errorf("expected news-domain pass, got %+v", v[0])
	}
}

func TestCorroboratedByMultipleSources(t *testing.T) {
	articles := []news.Article{
		article("Quake hits northern Japan coast overnight", "https://a.net/1"),
		article("Quake hits northern Japan coast with tsunami warning", "https://b.org/2"),
		article("Quake hits northern Japan coast", "https://c.io/3"),
		article("Unrelated story", "https://d.net/4"),
	}
	v := NewEngine(nil, factCheck).Check(context.Background(), articles)
	for i := 0; i < 3; i++ {
		if v[i].LikelyFake || v[i].Notes != "Corroborated by 2 sources." || v[i].CorroborationCount != 2 {
			t.Errorf("article %d: unexpected verdict %+v", i, v[i])
		}
	}
	if v[0].ArticleID != articles[0].ID {
		t.Error("expected verdict to reference the article ID")
	}
}

func TestEmptyLinkDoesNotPanic(t *testing.T) {
	v := NewEngine(nil, factCheck).Check(context.Background(), []news.Article{article("", "")})
	if len(v) != 1 || !v[0].LikelyFake {
		t.Errorf("expected one flagged verdict, got %+v", v)
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	var articles []news.Article
	for i := 0; i < 30; i++ {
		articles = append(articles, article(fmt.Sprintf("Story number %d about things", i%7), fmt.Sprintf("https://site%d.com/%d", i%4, i)))
	}
	e := NewEngine(nil, factCheck)
	first := e.Check(context.Background(), articles)
	for run := 0; run < 5; run++ {
		if got := e.Check(context.Background(), articles); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d produced different verdicts", run)
		}
	}
}

// mockEmbedder returns canned vectors.
type mockEmbedder struct {
	vectors [][]float64
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, _ []string) ([][]float64, error) {
	return m.vectors, m.err
}

func TestEmbeddingMatcher(t *testing.T) {
	articles := []news.Article{
		article("Chip export curbs tighten", "https://a.net/1"),
		article("US widens semiconductor restrictions", "https://b.net/2"),
		article("Football final tonight", "https://c.net/3"),
	}
	m := EmbeddingMatcher{
		Embedder:  &mockEmbedder{vectors: [][]float64{{1, 0.1}, {0.95, 0.12}, {0, 1}}},
		Threshold: 0.9,
	}
	got := m.Match(context.Background(), articles)
	want := [][]int{{1}, {0}, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEmbeddingMatcherFallsBack(t *testing.T) {
	articles := []news.Article{
		article("Same five words right here", "https://a.net/1"),
		article("Same five words right here too", "https://b.net/2"),
	}
	m := EmbeddingMatcher{Embedder: &mockEmbedder{err: errors.New("ollama down")}, Threshold: 0.9}
	got := m.Match(context.Background(), articles)
	if !reflect.DeepEqual(got, [][]int{{1}, {0}}) {
		t.Errorf("expected prefix fallback matches, got %v", got)
	}
}

func TestCosine(t *testing.T) {
	if c := cosine([]float64{1, 0}, []float64{1, 0}); c < 0.999 {
		t.Errorf("expected 1, got %v", c)
	}
	if c := cosine([]float64{1, 0}, []float64{0, 1}); c != 0 {
		t.Errorf("expected 0, got %v", c)
	}
	if c := cosine([]float64{1}, []float64{1, 2}); c != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", c)
	}
}
