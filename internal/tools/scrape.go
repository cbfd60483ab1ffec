package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	lctools "github.com/tmc/langchaingo/tools"

	"business-consultant/internal/helper"
)

const (
	scrapeDescription = "Scrapes the text content of a given URL. Input should be a single absolute http or https URL."
	// ErrScrapePrefix starts every observation of a failed scrape.
	ErrScrapePrefix = "Error scraping website"
	maxPageBytes    = 5 << 20
)

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// Scraper fetches a page and returns its readable text, truncated to limit characters.
type Scraper struct {
	limit     int
	client    *http.Client
	converter *md.Converter
}

var _ lctools.Tool = (*Scraper)(nil)

func NewScraper(limit int) *Scraper {
	return &Scraper{
		limit:     limit,
		client:    &http.Client{Timeout: 30 * time.Second},
		converter: md.NewConverter("", true, nil),
	}
}

func (s *Scraper) Name() string        { return string(ScrapeWebsite) }
func (s *Scraper) Description() string { return scrapeDescription }

// Call never returns an error: failures are reported in the text so the agent can try another page.
func (s *Scraper) Call(ctx context.Context, input string) (string, error) {
	log.Info().Str("url", input).Msg("Scraping website")
	content, err := s.scrape(ctx, input)
	if err != nil {
		return fmt.Sprintf("%s: %v", ErrScrapePrefix, err), nil
	}
	return helper.Truncate(content, s.limit), nil
}

func (s *Scraper) scrape(ctx context.Context, input string) (string, error) {
	target, err := parseURL(input)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer, header, iframe, svg, form").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	text := s.converter.Convert(body)
	if strings.TrimSpace(text) == "" {
		text = body.Text()
	}
	text = strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n\n"))
	if text == "" {
		return "", fmt.Errorf("page %s has no readable text", target)
	}
	return text, nil
}

func parseURL(input string) (string, error) {
	raw := strings.Trim(strings.TrimSpace(input), "`'\"<>")
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: only absolute http(s) URLs are supported", raw)
	}
	return u.String(), nil
}
