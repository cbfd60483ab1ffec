package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name  string
	out   string
	err   error
	panic bool
	calls []string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Call(_ context.Context, input string) (string, error) {
	f.calls = append(f.calls, input)
	if f.panic {
		panic("kaboom")
	}
	return f.out, f.err
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
	}{
		{"web_search", WebSearch},
		{" Web_Search ", WebSearch},
		{"`scrape_website`", ScrapeWebsite},
		{"[python_repl_tool]", PythonREPL},
	}
	for _, tt := range tests {
		got, ok := ParseName(tt.in)
		assert.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, ok := ParseName("delete_everything")
	assert.False(t, ok)
}

func TestNewToolboxRejectsUnknownAndDuplicate(t *testing.T) {
	_, err := NewToolbox(&fakeTool{name: "calculator"})
	assert.ErrorContains(t, err, "unknown tool")

	_, err = NewToolbox(&fakeTool{name: "web_search"}, &fakeTool{name: "web_search"})
	assert.ErrorContains(t, err, "duplicate tool")
}

func TestExecuteDispatches(t *testing.T) {
	search := &fakeTool{name: "web_search", out: "results"}
	scrape := &fakeTool{name: "scrape_website", out: "page"}
	box, err := NewToolbox(search, scrape)
	require.NoError(t, err)

	assert.Equal(t, []Name{WebSearch, ScrapeWebsite}, box.Names())
	assert.Equal(t, "results", box.Execute(context.Background(), "web_search", "acme"))
	assert.Equal(t, "page", box.Execute(context.Background(), " scrape_website", "https://acme.test"))
	assert.Equal(t, []string{"acme"}, search.calls)
	assert.Equal(t, []string{"https://acme.test"}, scrape.calls)

	specs := box.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "web_search", specs[0].Name)
	assert.Equal(t, "fake web_search", specs[0].Description)
}

func TestExecuteErrorsBecomeObservations(t *testing.T) {
	box, err := NewToolbox(
		&fakeTool{name: "web_search", err: errors.New("rate limited")},
		&fakeTool{name: "scrape_website", panic: true},
	)
	require.NoError(t, err)

	obs := box.Execute(context.Background(), "web_search", "q")
	assert.True(t, strings.HasPrefix(obs, "Error:"), obs)
	assert.Contains(t, obs, "rate limited")

	obs = box.Execute(context.Background(), "scrape_website", "q")
	assert.True(t, strings.HasPrefix(obs, "Error:"), obs)
	assert.Contains(t, obs, "kaboom")

	obs = box.Execute(context.Background(), "python_repl_tool", "print(1)")
	assert.Equal(t, "Error: python_repl_tool is not a valid tool, try one of [web_search, scrape_website].", obs)

	obs = box.Execute(context.Background(), "rm -rf", "")
	assert.True(t, strings.HasPrefix(obs, "Error: rm -rf is not a valid tool"), obs)
}
