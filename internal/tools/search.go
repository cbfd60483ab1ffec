package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lctools "github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/config"
)

const (
	searchDescription = "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events, companies and markets. " +
		"Input should be a search query."
	userAgent = "business-consultant/1.0"
)

// TavilySearch queries the Tavily search API.
type TavilySearch struct {
	baseURL    string
	key        string
	maxResults int
	client     *http.Client
}

var _ lctools.Tool = (*TavilySearch)(nil)

func NewTavilySearch(baseURL, key string, maxResults int) *TavilySearch {
	return &TavilySearch{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		key:        key,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TavilySearch) Name() string        { return string(WebSearch) }
func (t *TavilySearch) Description() string { return searchDescription }

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Call returns the ranked results for query, one block per result.
func (t *TavilySearch) Call(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(strings.Trim(query, `"`))
	if query == "" {
		return "", fmt.Errorf("search query is empty")
	}

	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: t.maxResults, SearchDepth: "basic"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("search request failed: %d, %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	return formatResults(out.Results), nil
}

func formatResults(results []tavilyResult) string {
	if len(results) == 0 {
		return "No good search result found"
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s\nURL: %s\n%s", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return sb.String()
}

// duckDuckGoSearch renames the langchaingo DuckDuckGo tool to the web_search tag.
type duckDuckGoSearch struct {
	*duckduckgo.Tool
}

func (d duckDuckGoSearch) Name() string        { return string(WebSearch) }
func (d duckDuckGoSearch) Description() string { return searchDescription }

// NewSearch returns the web search tool selected by cfg.
func NewSearch(cfg *config.SearchConfig) (lctools.Tool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.SearchDuckDuckGo:
		t, err := duckduckgo.New(cfg.MaxResults, userAgent)
		if err != nil {
			return nil, apperrors.Configuration("search", "failed to create duckduckgo client", err)
		}
		return duckDuckGoSearch{Tool: t}, nil
	default:
		return NewTavilySearch(cfg.BaseURL, cfg.Key, cfg.MaxResults), nil
	}
}
