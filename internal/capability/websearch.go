package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultSearxNGURL    = "http://localhost:8080"
	defaultMaxResults    = 3
	defaultSearchTimeout = 30 * time.Second
)

// SearchResult is a single result from the metasearch backend.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type searxResponse struct {
	Results []SearchResult `json:"results"`
}

// webSearch queries a SearxNG instance over its JSON API.
type webSearch struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

func NewWebSearch(baseURL string, maxResults int) Capability {
	if baseURL == "" {
		baseURL = defaultSearxNGURL
	}
	if maxResults < 1 {
		maxResults = defaultMaxResults
	}
	return &webSearch{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: defaultSearchTimeout},
	}
}

func (c *webSearch) Name() Name { return WebSearch }

func (c *webSearch) Description() string {
	return "Search the web for current information about an error, tool, or platform."
}

func (c *webSearch) Execute(ctx context.Context, req Request) (*Response, error) {
	results, err := c.search(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Response{Output: "No web search results were found."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d web search result(s):\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return &Response{Output: b.String()}, nil
}

// search performs the raw query and caps results at maxResults. It is
// shared with the deep-research capability.
func (c *webSearch) search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("web search requires a query")
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("web search: backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("web search: decode response: %w", err)
	}

	if len(parsed.Results) > c.maxResults {
		parsed.Results = parsed.Results[:c.maxResults]
	}
	return parsed.Results, nil
}
