package parser

import (
	"fmt"
	"net/url"
	"strings"

	"mars-scraper/models"
	"mars-scraper/scrapeerr"

	"github.com/PuerkitoBio/goquery"
)

// Selectors used on the Mars pages
const (
	FeaturedImageTag    = "img"
	FeaturedImageClass  = "fancybox-image"
	ListingItemSelector = "a.product-item"
)

// Parser extracts Mars content from page HTML.
// It holds no state, so the same markup always yields the same records.
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) document(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, scrapeerr.Extraction("document", fmt.Errorf("failed to parse HTML: %w", err))
	}
	return doc, nil
}

// tagClass builds a CSS selector for a tag with an optional class
func tagClass(tag, class string) string {
	if class == "" {
		return tag
	}
	return tag + "." + class
}

// TextOf returns the trimmed text of the first element matching tag and class
func (p *Parser) TextOf(htmlContent, tag, class string) (string, error) {
	doc, err := p.document(htmlContent)
	if err != nil {
		return "", err
	}
	sel := tagClass(tag, class)
	el := doc.Find(sel).First()
	if el.Length() == 0 {
		return "", scrapeerr.ElementNotFound(sel)
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return "", scrapeerr.Extraction(sel, fmt.Errorf("element has no text"))
	}
	return text, nil
}

// AttrOf returns attribute attr of the first element matching tag and class
func (p *Parser) AttrOf(htmlContent, tag, class, attr string) (string, error) {
	doc, err := p.document(htmlContent)
	if err != nil {
		return "", err
	}
	sel := tagClass(tag, class)
	el := doc.Find(sel).First()
	if el.Length() == 0 {
		return "", scrapeerr.ElementNotFound(sel)
	}
	val, ok := el.Attr(attr)
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		return "", scrapeerr.Extraction(sel+"@"+attr, fmt.Errorf("attribute %q missing", attr))
	}
	return val, nil
}

// ParseNews extracts the latest headline and teaser from the news page
func (p *Parser) ParseNews(htmlContent string) (models.NewsItem, error) {
	title, err := p.TextOf(htmlContent, "div", "content_title")
	if err != nil {
		return models.NewsItem{}, fmt.Errorf("failed to extract news title: %w", err)
	}
	summary, err := p.TextOf(htmlContent, "div", "article_teaser_body")
	if err != nil {
		return models.NewsItem{}, fmt.Errorf("failed to extract news summary: %w", err)
	}
	return models.NewsItem{Title: title, Summary: summary}, nil
}

// ParseFeaturedImage extracts the full size featured image from the gallery page.
// pageURL is the gallery URL; relative sources are resolved against its scheme and host.
func (p *Parser) ParseFeaturedImage(htmlContent, pageURL string) (models.FeaturedImage, error) {
	src, err := p.AttrOf(htmlContent, FeaturedImageTag, FeaturedImageClass, "src")
	if err != nil {
		return models.FeaturedImage{}, fmt.Errorf("failed to extract featured image: %w", err)
	}
	base, err := BaseURL(pageURL)
	if err != nil {
		return models.FeaturedImage{}, err
	}
	abs, err := ResolveURL(base, src)
	if err != nil {
		return models.FeaturedImage{}, err
	}
	return models.FeaturedImage{URL: abs}, nil
}

// ListingTitles returns the text of every listing item link in page order
func (p *Parser) ListingTitles(htmlContent string) ([]string, error) {
	doc, err := p.document(htmlContent)
	if err != nil {
		return nil, err
	}
	var titles []string
	doc.Find(ListingItemSelector).Each(func(i int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	if len(titles) == 0 {
		return nil, scrapeerr.ElementNotFound(ListingItemSelector)
	}
	return titles, nil
}

// FirstImageSrc returns the src of the first image on the page
func (p *Parser) FirstImageSrc(htmlContent string) (string, error) {
	return p.AttrOf(htmlContent, "img", "", "src")
}

// HemisphereTitle cleans a listing link text: surrounding whitespace and a
// trailing "Enhanced" token are removed.
func HemisphereTitle(text string) string {
	title := strings.TrimSpace(text)
	title = strings.TrimSuffix(title, "Enhanced")
	return strings.TrimSpace(title)
}

// BaseURL returns scheme://host/ of pageURL
func BaseURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL %q: %w", pageURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("page URL %q is not absolute", pageURL)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}

// ResolveURL combines base with src. An absolute src is returned unchanged.
func ResolveURL(base, src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", scrapeerr.Extraction("src", fmt.Errorf("empty image path"))
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", scrapeerr.Extraction(src, fmt.Errorf("failed to parse image path: %w", err))
	}
	if ref.IsAbs() {
		return src, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}
