// Package corroborate estimates article credibility by looking for the same
// story elsewhere in the collected set.
//
// This is a heuristic, not a fact checker. Two outlets covering the same
// event with different headlines are not matched, and a rumour repeated by
// several low-quality sites counts as corroborated.
package corroborate

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/TobiSchelling/NewsDigest/internal/news"
)

const (
	NoteFactCheck    = "Found in fact-check sources."
	NoteNewsDomain   = "Single-source but domain looks like a news site."
	NoteSingleSource = "Single-source, no corroboration."
)

// Verdict is the credibility assessment for one article.
type Verdict struct {
	ArticleID          string `json:"article_id"`
	Title              string `json:"title"`
	Link               string `json:"link"`
	CorroborationCount int    `json:"corroboration_count"`
	LikelyFake         bool   `json:"likely_fake"`
	Notes              string `json:"notes"`
}

// Matcher finds, for each article, the positions of the other articles that
// cover the same story. The result has one entry per input article and never
// lists an article as its own match.
type Matcher interface {
	Match(ctx context.Context, articles []news.Article) [][]int
}

// Engine produces one verdict per article.
type Engine struct {
	matcher          Matcher
	factCheckDomains []string
}

// NewEngine creates an engine. A nil matcher uses the five-token title prefix.
func NewEngine(matcher Matcher, factCheckDomains []string) *Engine {
	if matcher == nil {
		matcher = PrefixMatcher{Tokens: DefaultPrefixTokens}
	}
	domains := make([]string, 0, len(factCheckDomains))
	for _, d := range factCheckDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	return &Engine{matcher: matcher, factCheckDomains: domains}
}

// Check returns verdicts for every article, in input order.
func (e *Engine) Check(ctx context.Context, articles []news.Article) []Verdict {
	matches := e.matcher.Match(ctx, articles)
	verdicts := make([]Verdict, len(articles))
	for i, a := range articles {
		var m []news.Article
		if i < len(matches) {
			for _, j := range matches[i] {
				m = append(m, articles[j])
			}
		}
		verdicts[i] = e.verdict(a, m)
	}

	fake := 0
	for _, v := range verdicts {
		if v.LikelyFake {
			fake++
		}
	}
	log.Printf("Corroboration complete: %d articles, %d flagged as likely fake", len(verdicts), fake)
	return verdicts
}

func (e *Engine) verdict(a news.Article, matches []news.Article) Verdict {
	v := Verdict{ArticleID: a.ID, Title: a.Title, Link: a.Link, CorroborationCount: len(matches)}

	for _, m := range matches {
		if e.isFactCheck(m.Link) {
			v.Notes = NoteFactCheck
			return v
		}
	}

	if len(matches) == 0 {
		if looksLikeNewsDomain(host(a.Link)) {
			v.Notes = NoteNewsDomain
		} else {
			v.LikelyFake = true
			v.Notes = NoteSingleSource
		}
		return v
	}

	v.Notes = fmt.Sprintf("Corroborated by %d sources.", len(matches))
	return v
}

func (e *Engine) isFactCheck(link string) bool {
	h := host(link)
	if h == "" {
		return false
	}
	for _, d := range e.factCheckDomains {
		if strings.Contains(h, d) {
			return true
		}
	}
	return false
}

// looksLikeNewsDomain is true for commercial domains mentioning "news".
func looksLikeNewsDomain(h string) bool {
	return strings.HasSuffix(h, ".com") && strings.Contains(h, "news")
}

func host(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
