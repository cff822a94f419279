package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelops/sentinel-ai/internal/llm/adapter"
	llmtypes "github.com/sentinelops/sentinel-ai/internal/llm/types"
)

// deepResearch runs a small research pipeline: expand the question into
// search queries, search the web, scrape the top results, and have the
// model synthesize an answer from the collected material.
type deepResearch struct {
	llm      adapter.LLMAdapter
	searcher *webSearch
	scraper  *Scraper
}

func NewDeepResearch(llm adapter.LLMAdapter, search Capability, scraper *Scraper) (Capability, error) {
	ws, ok := search.(*webSearch)
	if !ok {
		return nil, fmt.Errorf("deep research requires the web-search capability")
	}
	if llm == nil {
		return nil, fmt.Errorf("deep research requires an LLM adapter")
	}
	if scraper == nil {
		scraper = NewScraper(0)
	}
	return &deepResearch{llm: llm, searcher: ws, scraper: scraper}, nil
}

func (c *deepResearch) Name() Name { return DeepResearch }

func (c *deepResearch) Description() string {
	return "Research a question in depth by searching the web, reading the top results, and synthesizing an answer."
}

func (c *deepResearch) Execute(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Query)
	if question == "" {
		return nil, fmt.Errorf("deep research requires a question")
	}

	queries, err := c.generateQueries(ctx, question)
	if err != nil {
		// Fall back to the raw question rather than failing the step.
		queries = []string{question}
	}

	results := c.collectResults(ctx, queries)
	if len(results) == 0 {
		return &Response{Output: "Deep research found no usable web sources for this question."}, nil
	}

	pages := c.scrapeResults(ctx, results)

	answer, err := c.synthesize(ctx, question, results, pages)
	if err != nil {
		return nil, fmt.Errorf("deep research: synthesize answer: %w", err)
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nSources:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s)\n", r.Title, r.URL)
	}
	return &Response{Output: b.String()}, nil
}

// generateQueries asks the model for up to three focused search queries.
func (c *deepResearch) generateQueries(ctx context.Context, question string) ([]string, error) {
	resp, err := c.llm.Complete(ctx, []llmtypes.Message{
		{Role: "system", Content: "You generate focused web search queries. Respond with a numbered list of at most 3 queries and nothing else."},
		{Role: "user", Content: fmt.Sprintf("Generate search queries to research the following question:\n\n%s", question)},
	})
	if err != nil {
		return nil, err
	}

	var queries []string
	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)- ")
		line = strings.Trim(line, `"`)
		if line != "" {
			queries = append(queries, line)
		}
		if len(queries) == 3 {
			break
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("model returned no queries")
	}
	return queries, nil
}

// collectResults searches every query and deduplicates results by URL,
// keeping at most the search backend's result cap overall.
func (c *deepResearch) collectResults(ctx context.Context, queries []string) []SearchResult {
	seen := make(map[string]bool)
	var results []SearchResult
	for _, q := range queries {
		found, err := c.searcher.search(ctx, q)
		if err != nil {
			continue
		}
		for _, r := range found {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			results = append(results, r)
			if len(results) == c.searcher.maxResults {
				return results
			}
		}
	}
	return results
}

// scrapeResults fetches each result page. Pages that cannot be scraped
// fall back to the search snippet so one bad page does not sink the run.
func (c *deepResearch) scrapeResults(ctx context.Context, results []SearchResult) []string {
	pages := make([]string, 0, len(results))
	for _, r := range results {
		_, content, err := c.scraper.Scrape(ctx, r.URL)
		if err != nil || content == "" {
			content = r.Content
		}
		pages = append(pages, content)
	}
	return pages
}

func (c *deepResearch) synthesize(ctx context.Context, question string, results []SearchResult, pages []string) (string, error) {
	var material strings.Builder
	for i, r := range results {
		fmt.Fprintf(&material, "Source %d: %s (%s)\n%s\n\n", i+1, r.Title, r.URL, pages[i])
	}

	resp, err := c.llm.Complete(ctx, []llmtypes.Message{
		{Role: "system", Content: "You are a research assistant. Answer the question using only the provided sources. Be concise and concrete."},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\nSources:\n%s", question, material.String())},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
