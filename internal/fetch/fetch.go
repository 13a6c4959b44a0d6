package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	minContentChars = 100
	maxBodyBytes    = 5 << 20
)

var (
	// ErrNoContent means the page had no extractable article text.
	ErrNoContent = errors.New("no extractable content")
	// ErrDomainSkipped means an earlier request to the same host failed.
	ErrDomainSkipped = errors.New("domain previously failed")
)

// ContentFetcher fetches full article text via HTTP + readability extraction.
// After an HTTP error from a host, further requests to that host are skipped.
type ContentFetcher struct {
	client *http.Client

	mu            sync.Mutex
	failedDomains map[string]struct{}
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// Fetch returns the readable text of the page at articleURL.
func (f *ContentFetcher) Fetch(ctx context.Context, articleURL string) (string, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid article URL %q", articleURL)
	}
	domain := strings.ToLower(parsedURL.Host)

	if f.domainFailed(domain) {
		return "", ErrDomainSkipped
	}

	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.markFailed(domain)
		log.Printf("HTTP %d for %s, skipping remaining from %s", resp.StatusCode, articleURL, domain)
		return "", &httpError{code: resp.StatusCode}
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", articleURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) <= minContentChars {
		return "", ErrNoContent
	}
	return text, nil
}

func (f *ContentFetcher) domainFailed(domain string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.failedDomains[domain]
	return ok
}

func (f *ContentFetcher) markFailed(domain string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedDomains[domain] = struct{}{}
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}
