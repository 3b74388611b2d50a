package scraper

import (
	"context"
	"fmt"
	"time"

	"mars-scraper/browser"
	"mars-scraper/fetcher"
	"mars-scraper/models"
	"mars-scraper/parser"
	"mars-scraper/scrapeerr"

	"github.com/charmbracelet/log"
)

// Scraper runs one collection pass
type Scraper interface {
	// Scrape returns whatever could be collected plus a per-section report.
	// A failed section never aborts the run.
	Scrape(ctx context.Context) (*models.Results, *models.Report)
}

// Targets are the pages a run visits
type Targets struct {
	NewsURL         string
	GalleryURL      string
	FactsURL        string
	HemispheresURL  string
	FeaturedThumb   string // XPath of the gallery thumbnail
	HemisphereCount int
}

// Mars collects news, the featured image, facts and hemispheres on one browser session
type Mars struct {
	session browser.Session
	fetcher fetcher.Fetcher
	parser  *parser.Parser
	targets Targets
}

// NewMars creates a Mars scraper. The session stays owned by the caller.
func NewMars(session browser.Session, f fetcher.Fetcher, targets Targets) *Mars {
	return &Mars{
		session: session,
		fetcher: f,
		parser:  parser.NewParser(),
		targets: targets,
	}
}

// Scrape implements the Scraper interface
func (m *Mars) Scrape(ctx context.Context) (*models.Results, *models.Report) {
	results := &models.Results{ScrapedAt: time.Now().UTC()}
	report := &models.Report{}

	m.section(report, models.SectionNews, func() error {
		news, err := m.scrapeNews(ctx)
		results.News = news
		return err
	})
	m.section(report, models.SectionFeaturedImage, func() error {
		img, err := m.scrapeFeaturedImage(ctx)
		results.Image = img
		return err
	})
	m.section(report, models.SectionFacts, func() error {
		facts, err := m.scrapeFacts(ctx)
		results.Facts = facts
		return err
	})
	results.Hemispheres = m.scrapeHemispheres(ctx, report)

	log.Info("scrape finished",
		"succeeded", len(report.Succeeded()),
		"failed", len(report.Failed()),
		"hemispheres", len(results.Hemispheres))
	return results, report
}

// section runs fn and records its outcome
func (m *Mars) section(report *models.Report, name string, fn func() error) bool {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		kind := scrapeerr.KindOf(err)
		report.Fail(name, string(kind), err, elapsed)
		log.Error("section failed", "section", name, "kind", kind, "err", err)
		return false
	}
	report.Succeed(name, elapsed)
	log.Info("section done", "section", name, "duration", elapsed.Round(time.Millisecond))
	return true
}

// visitHTML navigates to url, waits until ready matches and returns the markup
func (m *Mars) visitHTML(ctx context.Context, url string, ready browser.Selector) (string, error) {
	if err := m.session.Visit(ctx, url); err != nil {
		return "", err
	}
	if err := m.session.WaitFor(ctx, ready); err != nil {
		return "", err
	}
	return m.session.HTML(ctx)
}

func (m *Mars) scrapeNews(ctx context.Context) (models.NewsItem, error) {
	html, err := m.visitHTML(ctx, m.targets.NewsURL, browser.TagClass("div", "content_title"))
	if err != nil {
		return models.NewsItem{}, fmt.Errorf("failed to load news page: %w", err)
	}
	news, err := m.parser.ParseNews(html)
	if err != nil {
		return models.NewsItem{}, err
	}
	log.Info("news", "title", news.Title, "summary", news.Summary)
	return news, nil
}

func (m *Mars) scrapeFeaturedImage(ctx context.Context) (models.FeaturedImage, error) {
	thumb := browser.XPath(m.targets.FeaturedThumb)
	if err := m.session.Visit(ctx, m.targets.GalleryURL); err != nil {
		return models.FeaturedImage{}, fmt.Errorf("failed to load gallery: %w", err)
	}
	if err := m.session.WaitFor(ctx, thumb); err != nil {
		return models.FeaturedImage{}, err
	}
	el, err := browser.First(ctx, m.session, thumb)
	if err != nil {
		return models.FeaturedImage{}, err
	}
	if err := el.Click(ctx); err != nil {
		return models.FeaturedImage{}, fmt.Errorf("failed to open featured image: %w", err)
	}

	if err := m.session.WaitFor(ctx, browser.TagClass(parser.FeaturedImageTag, parser.FeaturedImageClass)); err != nil {
		return models.FeaturedImage{}, err
	}
	html, err := m.session.HTML(ctx)
	if err != nil {
		return models.FeaturedImage{}, err
	}
	img, err := m.parser.ParseFeaturedImage(html, m.targets.GalleryURL)
	if err != nil {
		return models.FeaturedImage{}, err
	}
	log.Info("featured image", "url", img.URL)
	return img, nil
}

func (m *Mars) scrapeFacts(ctx context.Context) (models.FactsTable, error) {
	html, err := m.fetcher.Fetch(ctx, m.targets.FactsURL)
	if err != nil {
		return models.FactsTable{}, err
	}
	facts, err := m.parser.ParseFacts(html)
	if err != nil {
		return models.FactsTable{}, err
	}
	log.Info("facts", "rows", len(facts.Rows))
	return facts, nil
}
