package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/config"
)

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(tavilyResponse{Results: []tavilyResult{
			{Title: "Acme 10-K", URL: "https://acme.test/10k", Content: "Revenue $1B"},
			{Title: "Acme news", URL: "https://news.test/acme", Content: " New CEO "},
		}})
	}))
	defer srv.Close()

	out, err := NewTavilySearch(srv.URL+"/", "tvly-key", 5).Call(context.Background(), `"acme revenue"`)
	require.NoError(t, err)

	assert.Equal(t, "acme revenue", got.Query)
	assert.Equal(t, 5, got.MaxResults)
	assert.Equal(t, "1. Acme 10-K\nURL: https://acme.test/10k\nRevenue $1B\n\n2. Acme news\nURL: https://news.test/acme\nNew CEO", out)
}

func TestTavilySearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewTavilySearch(srv.URL, "bad", 5)
	_, err := s.Call(context.Background(), "acme")
	assert.ErrorContains(t, err, "401")

	_, err = s.Call(context.Background(), "  ")
	assert.ErrorContains(t, err, "empty")
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Equal(t, "No good search result found", formatResults(nil))
}

func TestNewSearch(t *testing.T) {
	cfg := config.Default().Search
	_, err := NewSearch(&cfg)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))

	cfg.Key = "tvly"
	tool, err := NewSearch(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "web_search", tool.Name())

	cfg.Provider = config.SearchDuckDuckGo
	tool, err = NewSearch(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "web_search", tool.Name())
}
