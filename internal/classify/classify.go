// Package classify sorts articles into topic sections and raises keyword
// alerts for geopolitical events and investor mentions.
package classify

import (
	"strings"

	"github.com/TobiSchelling/NewsDigest/internal/config"
	"github.com/TobiSchelling/NewsDigest/internal/news"
)

// Section is a named, ordered, capped list of articles.
type Section struct {
	Name     string
	Articles []news.Article
}

// ColdWarAlert flags an article whose title mentions geopolitical keywords.
type ColdWarAlert struct {
	Article         news.Article `json:"article"`
	MatchedKeywords []string     `json:"matched_keywords"`
}

// InvestorAlert flags an article mentioning a tracked investor.
type InvestorAlert struct {
	Investor string       `json:"investor"`
	Article  news.Article `json:"article"`
}

type topic struct {
	name     string
	keywords []string
	max      int
}

// Classifier holds lower-cased keyword tables built once from config.
type Classifier struct {
	topics    []topic
	coldWar   []string
	investors []string
}

// New creates a classifier from section and alert configuration.
func New(sections []config.Section, alerts config.Alerts) *Classifier {
	c := &Classifier{investors: alerts.Investors}
	for _, s := range sections {
		c.topics = append(c.topics, topic{name: s.Name, keywords: lower(s.Keywords), max: s.Max})
	}
	for _, k := range alerts.ColdWarKeywords {
		if k != "" {
			c.coldWar = append(c.coldWar, k)
		}
	}
	return c
}

// Sections buckets articles by title keywords. An article can land in any
// number of sections; each section keeps collection order and stops at its cap.
// A cap of zero or less means no cap.
func (c *Classifier) Sections(articles []news.Article) []Section {
	out := make([]Section, 0, len(c.topics))
	for _, t := range c.topics {
		s := Section{Name: t.name, Articles: []news.Article{}}
		for _, a := range articles {
			if t.max > 0 && len(s.Articles) >= t.max {
				break
			}
			if containsAny(strings.ToLower(a.Title), t.keywords) {
				s.Articles = append(s.Articles, a)
			}
		}
		out = append(out, s)
	}
	return out
}

// ColdWarAlerts returns one alert per article whose title contains at least
// one geopolitical keyword, listing every keyword that matched.
func (c *Classifier) ColdWarAlerts(articles []news.Article) []ColdWarAlert {
	alerts := []ColdWarAlert{}
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		var matched []string
		for _, k := range c.coldWar {
			if strings.Contains(title, strings.ToLower(k)) {
				matched = append(matched, k)
			}
		}
		if len(matched) > 0 {
			alerts = append(alerts, ColdWarAlert{Article: a, MatchedKeywords: matched})
		}
	}
	return alerts
}

// InvestorMentions returns one alert per (article, investor) pair where the
// investor name appears in the title or summary, ignoring case.
func (c *Classifier) InvestorMentions(articles []news.Article) []InvestorAlert {
	alerts := []InvestorAlert{}
	for _, a := range articles {
		text := strings.ToLower(a.Title + " " + a.Summary)
		for _, name := range c.investors {
			if name != "" && strings.Contains(text, strings.ToLower(name)) {
				alerts = append(alerts, InvestorAlert{Investor: name, Article: a})
			}
		}
	}
	return alerts
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
