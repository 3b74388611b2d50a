package scraper

import (
	"context"
	"fmt"
	"time"

	"mars-scraper/browser"
	"mars-scraper/models"
	"mars-scraper/parser"
	"mars-scraper/scrapeerr"

	"github.com/charmbracelet/log"
)

const (
	sampleLinkText = "Sample"
	cleanupTimeout = 10 * time.Second
)

// HemisphereIndices returns the listing positions of the hemisphere title links.
//
// The listing shows every hemisphere as two product-item links, thumbnail
// first and title second, so for four hemispheres the titles sit at 1, 3, 5
// and 7. That pairing is how the live page is laid out today, not something
// the site guarantees; recheck it when the listing markup changes.
func HemisphereIndices(count int) []int {
	indices := make([]int, 0, count)
	for i := 0; i < count; i++ {
		indices = append(indices, 2*i+1)
	}
	return indices
}

func (m *Mars) scrapeHemispheres(ctx context.Context, report *models.Report) []models.Hemisphere {
	var hemispheres []models.Hemisphere
	for _, i := range HemisphereIndices(m.targets.HemisphereCount) {
		m.section(report, models.HemisphereSection(i), func() error {
			h, err := m.scrapeHemisphere(ctx, i)
			if err != nil {
				return err
			}
			hemispheres = append(hemispheres, h)
			return nil
		})
	}
	return hemispheres
}

// scrapeHemisphere walks listing -> detail -> sample tab for listing item i.
// Whatever happens, focus is back on the starting window and every tab
// opened on the way is closed when it returns.
func (m *Mars) scrapeHemisphere(ctx context.Context, i int) (h models.Hemisphere, err error) {
	origin := m.session.Current()
	defer func() {
		if cerr := m.restoreWindows(ctx, origin); cerr != nil {
			log.Warn("failed to restore windows", "index", i, "err", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	// listing: revisit every time, the previous click navigated away
	items := browser.CSS(parser.ListingItemSelector)
	html, err := m.visitHTML(ctx, m.targets.HemispheresURL, items)
	if err != nil {
		return h, fmt.Errorf("failed to load hemisphere listing: %w", err)
	}
	titles, err := m.parser.ListingTitles(html)
	if err != nil {
		return h, err
	}
	if i >= len(titles) {
		return h, &scrapeerr.Error{
			Kind:   scrapeerr.KindElementNotFound,
			Target: items.String(),
			Err:    fmt.Errorf("index %d out of range (%d items)", i, len(titles)),
		}
	}
	h.Title = parser.HemisphereTitle(titles[i])

	link, err := browser.Nth(ctx, m.session, items, i)
	if err != nil {
		return h, err
	}
	if err := link.Click(ctx); err != nil {
		return h, fmt.Errorf("failed to open %q: %w", h.Title, err)
	}

	// detail
	sample := browser.LinkText(sampleLinkText)
	if err := m.session.WaitFor(ctx, sample); err != nil {
		return h, err
	}
	before, err := m.session.Windows(ctx)
	if err != nil {
		return h, err
	}
	sampleLink, err := browser.First(ctx, m.session, sample)
	if err != nil {
		return h, err
	}
	if err := sampleLink.Click(ctx); err != nil {
		return h, fmt.Errorf("failed to open sample for %q: %w", h.Title, err)
	}

	// sample tab
	if err := m.session.WaitForWindows(ctx, before+1); err != nil {
		return h, err
	}
	if err := m.session.SwitchWindow(ctx, -1); err != nil {
		return h, err
	}
	if err := m.session.WaitFor(ctx, browser.CSS("img")); err != nil {
		return h, err
	}
	html, err = m.session.HTML(ctx)
	if err != nil {
		return h, err
	}
	src, err := m.parser.FirstImageSrc(html)
	if err != nil {
		return h, err
	}
	// relative sources belong to the sample tab, which may be on another host
	base, err := m.session.URL(ctx)
	if err != nil {
		return h, err
	}
	if h.ImageURL, err = parser.ResolveURL(base, src); err != nil {
		return h, err
	}

	log.Info("hemisphere", "index", i, "title", h.Title, "img_url", h.ImageURL)
	return h, nil
}

// restoreWindows focuses origin and closes every window opened after it.
// It keeps working after ctx is cancelled so tabs are not leaked.
func (m *Mars) restoreWindows(ctx context.Context, origin int) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := m.session.SwitchWindow(ctx, origin); err != nil {
		return err
	}
	n, err := m.session.Windows(ctx)
	if err != nil {
		return err
	}
	for j := n - 1; j > origin; j-- {
		if err := m.session.CloseWindow(ctx, j); err != nil {
			return err
		}
	}
	return nil
}
