package fetcher

import (
	"context"
	"fmt"
	"time"

	"mars-scraper/scrapeerr"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements the Fetcher interface using colly
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	return &CollyFetcher{
		collector: c,
	}
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", scrapeerr.Navigation(url, err)
	}

	// a clone per call keeps callbacks from piling up across runs
	c := cf.collector.Clone()
	c.Context = ctx

	var body string
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		log.Debug("fetched page", "url", r.Request.URL.String(), "status", r.StatusCode, "bytes", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		log.Warn("error fetching page", "url", r.Request.URL.String(), "status", r.StatusCode, "err", err)
	})

	err := c.Visit(url)
	c.Wait()
	if ctx.Err() != nil {
		return "", scrapeerr.Navigation(url, ctx.Err())
	}
	if err != nil {
		return "", scrapeerr.Navigation(url, fmt.Errorf("failed to visit URL: %w", err))
	}

	if body == "" {
		return "", scrapeerr.Navigation(url, fmt.Errorf("empty response body"))
	}
	return body, nil
}
