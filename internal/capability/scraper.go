package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxScrapedChars    = 50000
	scraperUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultScrapeLimit = 30 * time.Second
)

// Scraper fetches a page and extracts its readable text content. It is
// a supporting component for deep-research rather than a standalone
// capability.
type Scraper struct {
	httpClient *http.Client
	sanitizer  *bluemonday.Policy
}

func NewScraper(timeoutSeconds int) *Scraper {
	timeout := defaultScrapeLimit
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		sanitizer:  bluemonday.StrictPolicy(),
	}
}

// Scrape downloads rawURL and returns the page title and cleaned body
// text, truncated to a bounded length.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (title, content string, err error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("scrape: invalid url %q: %w", rawURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", "", fmt.Errorf("scrape: unsupported scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("scrape: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("scrape: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("scrape: %s returned %d", parsedURL.Host, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("scrape: extract content: %w", err)
	}

	text := s.sanitizer.Sanitize(article.TextContent)
	text = strings.TrimSpace(text)
	if len(text) > maxScrapedChars {
		text = text[:maxScrapedChars]
	}
	return article.Title, text, nil
}
