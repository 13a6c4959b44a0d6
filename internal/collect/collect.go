package collect

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/TobiSchelling/NewsDigest/internal/config"
	"github.com/TobiSchelling/NewsDigest/internal/news"
)

// Result holds the results of a collection run.
type Result struct {
	Articles   []news.Article
	TotalFound int
	Duplicates int
	Failed     int
	Sources    map[string]int
}

// Collector gathers articles from every configured feed and NewsAPI.
type Collector struct {
	source      Source
	groups      []config.Group
	perSource   int
	concurrency int
	timeout     time.Duration
	newsClient  *NewsAPIClient
	newsQuery   string
	newsSize    int
}

// NewCollector creates a collector reading feeds through source.
func NewCollector(cfg *config.Config, source Source) *Collector {
	c := &Collector{
		source:      source,
		groups:      cfg.FeedGroups(),
		perSource:   cfg.Collection.PerSource,
		concurrency: cfg.Collection.Concurrency,
		timeout:     cfg.FetchTimeout(),
	}
	if c.concurrency <= 0 {
		c.concurrency = 1
	}

	apiCfg := cfg.Sources.APIs.NewsAPI
	if apiCfg.Enabled {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKeyEnv)
		c.newsQuery = apiCfg.Query
		c.newsSize = apiCfg.PageSize
	}

	return c
}

// WithNewsAPI replaces the NewsAPI client, mainly for tests.
func (c *Collector) WithNewsAPI(client *NewsAPIClient, query string, pageSize int) *Collector {
	c.newsClient = client
	c.newsQuery = query
	c.newsSize = pageSize
	return c
}

// Fetch returns up to maxItems articles from one feed, in feed order.
// Any failure is logged and yields an empty result.
func (c *Collector) Fetch(ctx context.Context, url string, maxItems int) []news.Article {
	articles, _ := c.fetch(ctx, url, maxItems)
	return articles
}

func (c *Collector) fetch(ctx context.Context, url string, maxItems int) ([]news.Article, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Printf("Fetching feed: %s", url)
	entries, err := c.source.Fetch(ctx, url)
	if err != nil {
		log.Printf("Failed to parse feed %s: %v", url, err)
		return nil, false
	}

	if maxItems < 0 {
		maxItems = 0
	}
	if len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	articles := make([]news.Article, 0, len(entries))
	for _, e := range entries {
		articles = append(articles, news.NewArticle(e.Title, e.Link, e.Published, e.Summary, ""))
	}
	return articles, true
}

type job struct {
	group string
	url   string
}

// AggregateAll fetches every feed of every group and deduplicates the
// concatenation. Feeds are fetched concurrently but results are merged in
// configuration order.
func (c *Collector) AggregateAll(ctx context.Context, groups []config.Group, perSource int) []news.Article {
	r := c.aggregate(ctx, groups, perSource)
	return r.Articles
}

func (c *Collector) aggregate(ctx context.Context, groups []config.Group, perSource int) *Result {
	var jobs []job
	for _, g := range groups {
		for _, u := range g.Feeds {
			jobs = append(jobs, job{group: g.Name, url: u})
		}
	}

	results := make([][]news.Article, len(jobs))
	ok := make([]bool, len(jobs))
	queue := make(chan int)

	var wg sync.WaitGroup
	workers := min(c.concurrency, len(jobs))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i], ok[i] = c.fetch(ctx, jobs[i].url, perSource)
			}
		}()
	}
	for i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	r := &Result{Sources: make(map[string]int)}
	var all []news.Article
	for i, articles := range results {
		if !ok[i] {
			r.Failed++
		}
		for _, a := range articles {
			a.Group = jobs[i].group
			all = append(all, a)
		}
		r.Sources[jobs[i].group] += len(articles)
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() {
		log.Println("Collecting from NewsAPI...")
		for _, e := range c.newsClient.Search(ctx, c.newsQuery, c.newsSize) {
			all = append(all, news.NewArticle(e.Title, e.Link, e.Published, e.Summary, "newsapi"))
			r.Sources["newsapi"]++
		}
	}

	r.TotalFound = len(all)
	r.Articles = news.Dedup(all)
	r.Duplicates = r.TotalFound - len(r.Articles)
	return r
}

// Collect collects articles from all configured sources.
func (c *Collector) Collect(ctx context.Context) *Result {
	log.Println("Collecting articles from feeds...")
	r := c.aggregate(ctx, c.groups, c.perSource)
	log.Printf("Collection complete: %d found, %d kept, %d duplicates, %d feeds failed",
		r.TotalFound, len(r.Articles), r.Duplicates, r.Failed)
	return r
}
