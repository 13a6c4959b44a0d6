package digest

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders the digest as a Markdown document.
func Markdown(d *Digest) string {
	var sections []string

	header := fmt.Sprintf("# Daily Digest: %s\n\n%d articles collected, %d flagged as likely fake.",
		d.GeneratedAt.Format("Jan 02, 2006"), d.ArticleCount, d.LikelyFakeCount())
	if len(d.Regions) > 0 {
		header += "\n\nPriority regions: " + strings.Join(d.Regions, ", ")
	}
	sections = append(sections, header)

	if len(d.Market) > 0 {
		sections = append(sections, marketTable(d))
	}

	if len(d.ColdWarAlerts) > 0 {
		var lines []string
		for _, a := range d.ColdWarAlerts {
			lines = append(lines, fmt.Sprintf("- %s (%s)", link(a.Article.Title, a.Article.Link),
				strings.Join(a.MatchedKeywords, ", ")))
		}
		sections = append(sections, "## Cold War Watch\n\n"+strings.Join(lines, "\n"))
	}

	if len(d.InvestorMentions) > 0 {
		var lines []string
		for _, m := range d.InvestorMentions {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", m.Investor, link(m.Article.Title, m.Article.Link)))
		}
		sections = append(sections, "## Investor Mentions\n\n"+strings.Join(lines, "\n"))
	}

	for _, name := range sectionNames(d) {
		items := d.Sections[name]
		if len(items) == 0 {
			continue
		}
		var lines []string
		for _, it := range items {
			line := "- " + link(it.Title, it.Link)
			if it.Summary != "" {
				line += "\n  " + strings.ReplaceAll(it.Summary, "\n", " ")
			}
			lines = append(lines, line)
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", title(name), strings.Join(lines, "\n")))
	}

	var flagged []string
	for _, v := range d.FakeChecks {
		if v.LikelyFake {
			flagged = append(flagged, fmt.Sprintf("- %s: %s", link(v.Title, v.Link), v.Notes))
		}
	}
	if len(flagged) > 0 {
		sections = append(sections, "## Credibility Warnings\n\n"+
			"Single-source stories with no corroboration. This is a heuristic and may be wrong.\n\n"+
			strings.Join(flagged, "\n"))
	}

	return strings.Join(sections, "\n\n---\n\n") + "\n"
}

func marketTable(d *Digest) string {
	keys := make([]string, 0, len(d.Market))
	for k := range d.Market {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	alerted := make(map[string]bool, len(d.MarketAlerts))
	for _, a := range d.MarketAlerts {
		alerted[a.Key] = true
	}

	rows := []string{
		"## Markets",
		"",
		"| Instrument | Last | Previous | Change |",
		"|---|---:|---:|---:|",
	}
	for _, k := range keys {
		s := d.Market[k]
		change := fmt.Sprintf("%+.2f%%", s.PercentChange)
		if alerted[k] {
			change = "**" + change + "**"
		}
		rows = append(rows, fmt.Sprintf("| %s (%s) | %.2f | %.2f | %s |", k, s.Identifier, s.Last, s.Previous, change))
	}
	return strings.Join(rows, "\n")
}

// sectionNames returns section names in configured order, then any extras
// sorted by name.
func sectionNames(d *Digest) []string {
	seen := make(map[string]bool, len(d.SectionOrder))
	names := make([]string, 0, len(d.Sections))
	for _, n := range d.SectionOrder {
		if _, ok := d.Sections[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var extra []string
	for n := range d.Sections {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func link(text, href string) string {
	if text == "" {
		text = "(untitled)"
	}
	text = strings.NewReplacer("[", "(", "]", ")").Replace(text)
	if href == "" {
		return text
	}
	return fmt.Sprintf("[%s](%s)", text, href)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
