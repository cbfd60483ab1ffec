package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Acme</title><style>body{}</style></head>
<body><nav>Home | About</nav><h1>Acme Corp</h1><p>Acme makes <b>rockets</b>.</p>
<script>track()</script><footer>(c) Acme</footer></body></html>`

func TestScraperReturnsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	out, err := NewScraper(15000).Call(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "rockets")
	assert.NotContains(t, out, "track()")
	assert.NotContains(t, out, "Home | About")
	assert.NotContains(t, out, "body{}")
}

func TestScraperTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("a", 40000) + "</p></body></html>"))
	}))
	defer srv.Close()

	out, err := NewScraper(15000).Call(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, out, 15000)
}

func TestScraperTruncatesByCharacter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("市", 20000) + "</p></body></html>"))
	}))
	defer srv.Close()

	out, err := NewScraper(15000).Call(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 15000, utf8.RuneCountInString(out))
	assert.True(t, utf8.ValidString(out))
}

func TestScraperFailuresAreObservations(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	s := NewScraper(15000)
	for _, input := range []string{
		"not a url",
		"ftp://example.com/file",
		"/relative/path",
		srv.URL + "/missing",
		unreachable.URL,
	} {
		out, err := s.Call(context.Background(), input)
		require.NoError(t, err, input)
		assert.True(t, strings.HasPrefix(out, ErrScrapePrefix), "%s: %s", input, out)
	}
}

func TestParseURLStripsQuotes(t *testing.T) {
	u, err := parseURL(` "https://acme.test/about" `)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test/about", u)
}
