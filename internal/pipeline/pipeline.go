package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/TobiSchelling/NewsDigest/internal/classify"
	"github.com/TobiSchelling/NewsDigest/internal/collect"
	"github.com/TobiSchelling/NewsDigest/internal/config"
	"github.com/TobiSchelling/NewsDigest/internal/corroborate"
	"github.com/TobiSchelling/NewsDigest/internal/digest"
	"github.com/TobiSchelling/NewsDigest/internal/fetch"
	"github.com/TobiSchelling/NewsDigest/internal/llm"
	"github.com/TobiSchelling/NewsDigest/internal/market"
	"github.com/TobiSchelling/NewsDigest/internal/news"
	"github.com/TobiSchelling/NewsDigest/internal/summarize"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	PeriodID string
	Digest   *digest.Digest
	Steps    []StepResult
}

// ContentFetcher extracts readable article text for items without a summary.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Deps are the collaborators a pipeline runs against. Nil Market, Fetcher
// and Store disable their steps.
type Deps struct {
	Source     collect.Source
	Matcher    corroborate.Matcher
	Market     *market.Service
	Summarizer summarize.Summarizer
	Fetcher    ContentFetcher
	Store      digest.Store
	NewsAPI    *collect.NewsAPIClient
	Now        func() time.Time
}

// Pipeline orchestrates collect, corroborate, classify, market, summarize and
// assemble.
type Pipeline struct {
	cfg        *config.Config
	collector  *collect.Collector
	engine     *corroborate.Engine
	classifier *classify.Classifier
	market     *market.Service
	summarizer summarize.Summarizer
	fetcher    ContentFetcher
	store      digest.Store
	now        func() time.Time
}

// New creates a pipeline over explicit collaborators.
func New(cfg *config.Config, deps Deps) *Pipeline {
	collector := collect.NewCollector(cfg, deps.Source)
	if deps.NewsAPI != nil {
		api := cfg.Sources.APIs.NewsAPI
		collector.WithNewsAPI(deps.NewsAPI, api.Query, api.PageSize)
	}

	summarizer := deps.Summarizer
	if summarizer == nil {
		summarizer = summarize.Truncator{MaxChars: cfg.Summarization.MaxChars}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		cfg:        cfg,
		collector:  collector,
		engine:     corroborate.NewEngine(deps.Matcher, cfg.Credibility.FactCheckDomains),
		classifier: classify.New(cfg.Sections, cfg.Alerts),
		market:     deps.Market,
		summarizer: summarizer,
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		now:        now,
	}
}

// DefaultDeps builds the production collaborators described by cfg. The
// store is left for the caller to attach.
func DefaultDeps(cfg *config.Config) Deps {
	summ := cfg.Summarization
	provider := llm.CreateProvider(
		summ.Provider,
		summ.Model,
		summ.OllamaURL,
		summ.OpenAIModel,
		summ.APIKeyEnv,
	)

	deps := Deps{
		Source:     collect.NewFeedSource(cfg.FetchTimeout()),
		Matcher:    NewMatcher(cfg),
		Summarizer: summarize.New(provider, summ),
	}
	if cfg.Market.Enabled {
		deps.Market = market.NewService(cfg.Market, market.DefaultProviders(), cfg.FetchTimeout())
	}
	if cfg.Collection.FetchContent {
		deps.Fetcher = fetch.NewContentFetcher(cfg.FetchTimeout())
	}
	return deps
}

// NewMatcher returns the corroboration matcher selected in configuration.
func NewMatcher(cfg *config.Config) corroborate.Matcher {
	cred := cfg.Credibility
	prefix := corroborate.PrefixMatcher{Tokens: cred.PrefixTokens}
	if strings.ToLower(cred.Matcher) != "embedding" {
		return prefix
	}

	embModel := cfg.Summarization.EmbeddingModel
	if embModel == "" {
		embModel = "nomic-embed-text"
	}
	baseURL := cfg.Summarization.OllamaURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return corroborate.EmbeddingMatcher{
		Embedder:  llm.NewOllamaEmbedder(embModel, baseURL),
		Threshold: cred.Similarity,
		Fallback:  prefix,
	}
}

// Run executes the full pipeline and always returns a digest; collaborator
// failures only thin it out.
func (p *Pipeline) Run(ctx context.Context) *Result {
	d := digest.New(p.now())
	d.Regions = append([]string{}, p.cfg.Regions...)
	r := &Result{PeriodID: d.PeriodID(), Digest: d}

	log.Println("Step 1/6: Collecting articles...")
	collected := p.collector.Collect(ctx)
	d.ArticleCount = len(collected.Articles)
	r.Steps = append(r.Steps, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Kept %d articles (%d total, %d duplicates, %d feeds failed)",
			len(collected.Articles), collected.TotalFound, collected.Duplicates, collected.Failed),
	})
	articles := collected.Articles

	log.Println("Step 2/6: Checking corroboration...")
	d.FakeChecks = p.engine.Check(ctx, articles)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Corroborate",
		Summary: fmt.Sprintf("%d verdicts, %d likely fake", len(d.FakeChecks), d.LikelyFakeCount()),
	})

	log.Println("Step 3/6: Classifying articles...")
	sections := p.classifier.Sections(articles)
	d.ColdWarAlerts = p.classifier.ColdWarAlerts(articles)
	d.InvestorMentions = p.classifier.InvestorMentions(articles)
	r.Steps = append(r.Steps, StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("%d sections, %d cold war alerts, %d investor mentions",
			len(sections), len(d.ColdWarAlerts), len(d.InvestorMentions)),
	})

	r.Steps = append(r.Steps, p.runMarket(ctx, d))
	r.Steps = append(r.Steps, p.runSummarize(ctx, d, sections))
	r.Steps = append(r.Steps, p.runStore(d))

	return r
}

func (p *Pipeline) runMarket(ctx context.Context, d *digest.Digest) StepResult {
	log.Println("Step 4/6: Fetching market snapshots...")
	if p.market == nil {
		return StepResult{Name: "Market", Summary: "Market data disabled"}
	}
	d.Market = p.market.Snapshots(ctx)
	d.MarketAlerts = p.market.Alerts(d.Market)
	return StepResult{
		Name:    "Market",
		Summary: fmt.Sprintf("%d snapshots, %d movement alerts", len(d.Market), len(d.MarketAlerts)),
	}
}

func (p *Pipeline) runSummarize(ctx context.Context, d *digest.Digest, sections []classify.Section) StepResult {
	log.Println("Step 5/6: Summarizing section articles...")

	// An article can sit in several sections; summarize it once.
	cache := make(map[string]string)
	summarized, failed := 0, 0

	for _, sec := range sections {
		items := make([]digest.SectionItem, 0, len(sec.Articles))
		for _, a := range sec.Articles {
			summary, seen := cache[a.ID]
			if !seen {
				var err error
				summary, err = p.summarizer.Summarize(ctx, p.summaryInput(ctx, a))
				if err != nil {
					log.Printf("Summary failed for %s: %v", a.Link, err)
					failed++
				} else {
					summarized++
				}
				cache[a.ID] = summary
			}
			items = append(items, digest.SectionItem{Title: a.Title, Link: a.Link, Summary: summary})
		}
		d.Sections[sec.Name] = items
		d.SectionOrder = append(d.SectionOrder, sec.Name)
	}

	return StepResult{
		Name:    "Summarize",
		Summary: fmt.Sprintf("Summarized %d articles, %d failed", summarized, failed),
	}
}

// summaryInput is the article summary, else fetched text when enabled, else
// the title.
func (p *Pipeline) summaryInput(ctx context.Context, a news.Article) string {
	if strings.TrimSpace(a.Summary) != "" {
		return a.Summary
	}
	if p.fetcher != nil && a.Link != "" {
		text, err := p.fetcher.Fetch(ctx, a.Link)
		if err == nil && text != "" {
			return text
		}
		if p.debug() {
			log.Printf("No article text for %s: %v", a.Link, err)
		}
	}
	return a.Title
}

func (p *Pipeline) runStore(d *digest.Digest) StepResult {
	log.Println("Step 6/6: Storing digest...")
	if p.store == nil {
		return StepResult{Name: "Store", Summary: "Storage disabled"}
	}
	if err := p.store.SaveDigest(d); err != nil {
		log.Printf("Storing digest failed: %v", err)
		return StepResult{Name: "Store", Err: err}
	}
	return StepResult{Name: "Store", Summary: fmt.Sprintf("Stored digest %s", d.RunID)}
}

func (p *Pipeline) debug() bool {
	return strings.EqualFold(p.cfg.Logging.Level, "DEBUG")
}

// DryRun shows what would be done without touching the network.
func (p *Pipeline) DryRun() *Result {
	r := &Result{PeriodID: p.now().UTC().Format("2006-01-02")}

	feeds := 0
	for _, g := range p.cfg.FeedGroups() {
		feeds += len(g.Feeds)
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("[dry-run] Would fetch up to %d items from each of %d feeds in %d groups",
			p.cfg.Collection.PerSource, feeds, len(p.cfg.FeedGroups())),
	})
	r.Steps = append(r.Steps, StepResult{
		Name: "Corroborate",
		Summary: fmt.Sprintf("[dry-run] Would match with %q against %d fact-check domains",
			p.cfg.Credibility.Matcher, len(p.cfg.Credibility.FactCheckDomains)),
	})
	r.Steps = append(r.Steps, StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("[dry-run] %d sections, %d cold war keywords, %d investors",
			len(p.cfg.Sections), len(p.cfg.Alerts.ColdWarKeywords), len(p.cfg.Alerts.Investors)),
	})
	if p.market == nil {
		r.Steps = append(r.Steps, StepResult{Name: "Market", Summary: "[dry-run] Market data disabled"})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Market",
			Summary: fmt.Sprintf("[dry-run] Would quote %d instruments", len(p.cfg.Market.Instruments)),
		})
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Summarize",
		Summary: fmt.Sprintf("[dry-run] Would summarize with %T", p.summarizer),
	})
	if p.store == nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: "[dry-run] Storage disabled"})
	} else {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: "[dry-run] Would store digest"})
	}

	return r
}
