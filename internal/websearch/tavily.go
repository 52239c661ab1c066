package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/budtender/budtender-backend/internal/config"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// financialDomains is the allowlist used for financial queries
var financialDomains = []string{
	"finance.yahoo.com",
	"www.google.com/finance",
	"marketwatch.com",
	"bloomberg.com",
	"reuters.com",
	"cnbc.com",
	"investing.com",
	"nasdaq.com",
}

// Result is one web search hit
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Results is the formatted response of one search
type Results struct {
	Query           string   `json:"query"`
	OriginalQuery   string   `json:"originalQuery,omitempty"`
	EnhancedQuery   string   `json:"enhancedQuery,omitempty"`
	Answer          string   `json:"answer,omitempty"`
	IsFinancial     bool     `json:"isFinancialQuery"`
	SearchTimestamp string   `json:"searchTimestamp"`
	Results         []Result `json:"results"`
}

// SearchOptions tunes one search call
type SearchOptions struct {
	SearchDepth string
	MaxResults  int
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeImages  bool     `json:"include_images"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Searcher executes web searches with financial-aware parameter tuning
type Searcher struct {
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
	log        *logrus.Entry
}

// NewSearcher creates a new Tavily-backed searcher
func NewSearcher(cfg config.TavilyConfig) *Searcher {
	return &Searcher{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		log:        logrus.WithField("component", "websearch"),
	}
}

// Configured reports whether the search provider has credentials
func (s *Searcher) Configured() bool {
	return s.apiKey != ""
}

// Search runs a query against the search provider. Financial queries get
// advanced depth, more results, a domain allowlist, and freshness filtering.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) (*Results, error) {
	now := s.now()
	enhanced := EnhanceFinancialQuery(query, now)
	isFinancial := IsFinancialQuery(query)

	req := tavilyRequest{
		APIKey:        s.apiKey,
		Query:         enhanced,
		SearchDepth:   opts.SearchDepth,
		MaxResults:    opts.MaxResults,
		IncludeAnswer: true,
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}
	if isFinancial {
		req.SearchDepth = "advanced"
		if req.MaxResults < 8 {
			req.MaxResults = 8
		}
		req.IncludeDomains = financialDomains
	}

	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}

	processed := resp.Results
	if isFinancial {
		processed = filterStaleFinancialResults(resp.Results, now)
	}

	return &Results{
		Query:           resp.Query,
		OriginalQuery:   query,
		EnhancedQuery:   enhanced,
		Answer:          resp.Answer,
		IsFinancial:     isFinancial,
		SearchTimestamp: now.UTC().Format(time.RFC3339),
		Results:         processed,
	}, nil
}

func (s *Searcher) do(ctx context.Context, req tavilyRequest) (*tavilyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("search provider returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(data)))
	}

	var resp tavilyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &resp, nil
}

// filterStaleFinancialResults drops results whose content lacks a
// current-or-prior-year token. Falls back to the unfiltered set when
// filtering leaves too little, since stale data beats no data.
func filterStaleFinancialResults(results []Result, now time.Time) []Result {
	currentYear := strconv.Itoa(now.Year())
	priorYear := strconv.Itoa(now.Year() - 1)

	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.Contains(r.Content, currentYear) || strings.Contains(r.Content, priorYear) {
			filtered = append(filtered, r)
		}
	}

	if len(filtered) < 2 && len(results) > 2 {
		return results
	}
	return filtered
}

// FormatForAssistant renders search results as the human-readable block
// submitted back as a tool output
func FormatForAssistant(query string, res *Results) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Web search results for %q:\n\n", query)

	if res.Answer != "" {
		fmt.Fprintf(&b, "Quick Answer: %s\n\n", res.Answer)
	}
	if res.IsFinancial {
		fmt.Fprintf(&b, "Note: This is financial data searched at %s\n\n", res.SearchTimestamp)
	}

	for i, r := range res.Results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		fmt.Fprintf(&b, "   %s\n\n", r.Content)
	}

	return b.String()
}
