package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"mars-scraper/models"
	"mars-scraper/scrapeerr"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	newsURL    = "https://mars.test/news/"
	galleryURL = "https://jpl.test/spaceimages/?search=&category=featured#submit"
	factsURL   = "https://facts.test/mars/"
	listingURL = "https://astrogeology.test/search/results?q=hemisphere+enhanced&k1=target&v1=Mars"
	thumbXPath = `//*[@id="page"]/section[3]/div/ul/li[1]/a/div/div[2]/img`
)

var hemisphereSlugs = []struct {
	slug  string
	title string
}{
	{"cerberus", "Cerberus Hemisphere"},
	{"schiaparelli", "Schiaparelli Hemisphere"},
	{"syrtis_major", "Syrtis Major Hemisphere"},
	{"valles_marineris", "Valles Marineris Hemisphere"},
}

func sampleURL(slug string) string {
	return "https://astropedia.test/download/Mars/Viking/" + slug + "_enhanced.tif/full.jpg"
}

func detailURL(slug string) string {
	return "https://astrogeology.test/search/map/Mars/Viking/" + slug + "_enhanced"
}

// marsSite builds every page a run visits
func marsSite() map[string]string {
	pages := map[string]string{
		newsURL: `<ul class="item_list"><li class="slide">
<div class="content_title"><a href="/news/8">Mars Helicopter Flies Again</a></div>
<div class="article_teaser_body">Ingenuity completed its second flight.</div></li></ul>`,
		galleryURL: `<div id="page"><section></section><section></section><section><div><ul><li><a><div><div></div>
<div><img class="thumb" data-href="/spaceimages/open" src="/thumb.jpg"></div></div></a></li></ul></div></section></div>`,
		"https://jpl.test/spaceimages/open": `<div class="fancybox-inner"><img class="fancybox-image" src="/spaceimages/images/mediumsize/PIA19083_ip.jpg"></div>`,
	}

	var listing strings.Builder
	listing.WriteString(`<div class="collapsible results">`)
	for _, h := range hemisphereSlugs {
		fmt.Fprintf(&listing, `<div class="item"><a class="product-item" href="%[1]s"><img class="thumb" src="/thumb/%[2]s.png"></a>
<div class="description"><a class="product-item" href="%[1]s"><h3>%[3]s Enhanced</h3></a></div></div>`,
			detailURL(h.slug), h.slug, h.title)

		pages[detailURL(h.slug)] = fmt.Sprintf(`<div class="downloads"><ul>
<li><a href="%s" target="_blank">Sample</a> (jpg) 1024px wide</li>
<li><a href="/original.tif" target="_blank">Original</a></li></ul></div>`, sampleURL(h.slug))
		pages[sampleURL(h.slug)] = fmt.Sprintf(`<html><body><img style="display: block;" src="%s"></body></html>`, sampleURL(h.slug))
	}
	listing.WriteString(`</div>`)
	pages[listingURL] = listing.String()
	return pages
}

func marsFacts() fakeFetcher {
	return fakeFetcher{factsURL: `<table id="tablepress-p-mars-no-2">
<tr><td>Equatorial Diameter:</td><td>6,792 km</td></tr>
<tr><td>Polar Diameter:</td><td>6,752 km</td></tr>
<tr><td>Moons:</td><td>2 (Phobos &amp; Deimos)</td></tr></table>`}
}

func testTargets() Targets {
	return Targets{
		NewsURL:         newsURL,
		GalleryURL:      galleryURL,
		FactsURL:        factsURL,
		HemispheresURL:  listingURL,
		FeaturedThumb:   thumbXPath,
		HemisphereCount: 4,
	}
}

func newTestSession(pages map[string]string) *fakeSession {
	s := newFakeSession(pages)
	s.xpaths[thumbXPath] = "img.thumb"
	s.watchURL = listingURL
	return s
}

func wantHemispheres() []models.Hemisphere {
	var want []models.Hemisphere
	for _, h := range hemisphereSlugs {
		want = append(want, models.Hemisphere{Title: h.title, ImageURL: sampleURL(h.slug)})
	}
	return want
}

func TestHemisphereIndices(t *testing.T) {
	assert.Equal(t, []int{1, 3, 5, 7}, HemisphereIndices(4))
	assert.Equal(t, []int{1}, HemisphereIndices(1))
	assert.Empty(t, HemisphereIndices(0))
}

func TestScrapeHemispheres(t *testing.T) {
	session := newTestSession(marsSite())
	m := NewMars(session, marsFacts(), testTargets())
	report := &models.Report{}

	got := m.scrapeHemispheres(context.Background(), report)

	if diff := cmp.Diff(wantHemispheres(), got); diff != "" {
		t.Errorf("scrapeHemispheres() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, report.Failed())
	assert.Equal(t, []string{"hemisphere[1]", "hemisphere[3]", "hemisphere[5]", "hemisphere[7]"}, report.Succeeded())

	// every iteration starts on the original window with nothing else open
	require.Len(t, session.atVisit, 4)
	for i, st := range session.atVisit {
		assert.Equal(t, windowState{windows: 1, current: 0}, st, "iteration %d", i)
	}
	assert.Equal(t, 4, session.opened)
	assert.Equal(t, 4, session.closed)
	assert.Len(t, session.windows, 1)
	assert.Equal(t, 0, session.Current())
}

func TestScrapeHemispheresRelativeSampleSrc(t *testing.T) {
	pages := marsSite()
	// the sample tab lives on another host than the listing
	pages[sampleURL("cerberus")] = `<html><body><img src="full.jpg"></body></html>`
	pages[sampleURL("schiaparelli")] = `<html><body><img src="/download/Mars/Viking/schiaparelli_enhanced.tif/full.jpg"></body></html>`

	session := newTestSession(pages)
	m := NewMars(session, marsFacts(), testTargets())
	report := &models.Report{}

	got := m.scrapeHemispheres(context.Background(), report)

	if diff := cmp.Diff(wantHemispheres(), got); diff != "" {
		t.Errorf("scrapeHemispheres() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, report.Failed())
}

func TestScrapeHemispheresPartialFailure(t *testing.T) {
	pages := marsSite()
	// no Sample link on the Syrtis Major detail page
	pages[detailURL("syrtis_major")] = `<div class="downloads"><a href="/original.tif">Original</a></div>`
	// the Valles Marineris sample tab opens but has no image
	pages[sampleURL("valles_marineris")] = `<html><body><p>gone</p></body></html>`

	session := newTestSession(pages)
	m := NewMars(session, marsFacts(), testTargets())
	report := &models.Report{}

	got := m.scrapeHemispheres(context.Background(), report)

	want := wantHemispheres()[:2]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scrapeHemispheres() mismatch (-want +got):\n%s", diff)
	}

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "hemisphere[5]", failed[0].Section)
	assert.Equal(t, string(scrapeerr.KindElementNotFound), failed[0].Kind)
	assert.Equal(t, "hemisphere[7]", failed[1].Section)
	assert.Equal(t, string(scrapeerr.KindElementNotFound), failed[1].Kind)

	// the tab opened for the failed sample is still closed
	assert.Equal(t, session.opened, session.closed)
	assert.Len(t, session.windows, 1)
	assert.Equal(t, 0, session.Current())
}

func TestScrapeHemispheresShortListing(t *testing.T) {
	pages := marsSite()
	pages[listingURL] = `<a class="product-item" href="/x"></a><a class="product-item" href="/x">Only one Enhanced</a>`

	m := NewMars(newTestSession(pages), marsFacts(), testTargets())
	report := &models.Report{}

	got := m.scrapeHemispheres(context.Background(), report)

	assert.Empty(t, got)
	assert.Len(t, report.Failed(), 4)
	assert.True(t, report.AllFailed())
}

func TestScrape(t *testing.T) {
	session := newTestSession(marsSite())
	m := NewMars(session, marsFacts(), testTargets())

	results, report := m.Scrape(context.Background())

	assert.Empty(t, report.Failed())
	assert.Equal(t, models.NewsItem{
		Title:   "Mars Helicopter Flies Again",
		Summary: "Ingenuity completed its second flight.",
	}, results.News)
	assert.Equal(t, "https://jpl.test/spaceimages/images/mediumsize/PIA19083_ip.jpg", results.Image.URL)

	wantFacts := []models.Fact{
		{Parameter: "Equatorial Diameter:", Value: "6,792 km"},
		{Parameter: "Polar Diameter:", Value: "6,752 km"},
		{Parameter: "Moons:", Value: "2 (Phobos & Deimos)"},
	}
	if diff := cmp.Diff(wantFacts, results.Facts.Rows); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, results.Facts.HTML, "\n")
	assert.Len(t, results.Hemispheres, 4)
	assert.False(t, results.ScrapedAt.IsZero())
}

func TestScrapeContinuesAfterFailedSections(t *testing.T) {
	pages := marsSite()
	delete(pages, newsURL)
	pages["https://jpl.test/spaceimages/open"] = `<img class="fancybox-image">`

	m := NewMars(newTestSession(pages), fakeFetcher{}, testTargets())

	results, report := m.Scrape(context.Background())

	failed := report.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, models.SectionNews, failed[0].Section)
	assert.Equal(t, string(scrapeerr.KindNavigation), failed[0].Kind)
	assert.Equal(t, models.SectionFeaturedImage, failed[1].Section)
	assert.Equal(t, string(scrapeerr.KindExtraction), failed[1].Kind)
	assert.Equal(t, models.SectionFacts, failed[2].Section)
	assert.Equal(t, string(scrapeerr.KindNavigation), failed[2].Kind)

	assert.Zero(t, results.News)
	assert.Len(t, results.Hemispheres, 4)
	assert.False(t, report.AllFailed())
}

func TestScrapeIsRepeatable(t *testing.T) {
	pages := marsSite()
	m := NewMars(newTestSession(pages), marsFacts(), testTargets())

	first, _ := m.Scrape(context.Background())
	second, _ := m.Scrape(context.Background())

	first.ScrapedAt = second.ScrapedAt
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}
