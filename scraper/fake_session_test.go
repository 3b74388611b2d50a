package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"mars-scraper/browser"
	"mars-scraper/scrapeerr"

	"github.com/PuerkitoBio/goquery"
)

// fakeSession serves canned pages keyed by absolute URL. Clicking an element
// follows its data-href or href; target="_blank" opens a new window.
type fakeSession struct {
	pages  map[string]string
	xpaths map[string]string // xpath -> equivalent CSS

	windows []string
	current int

	opened int
	closed int
	// window count and focus observed at each visit of watchURL
	watchURL string
	atVisit  []windowState
}

type windowState struct {
	windows int
	current int
}

func newFakeSession(pages map[string]string) *fakeSession {
	return &fakeSession{
		pages:   pages,
		xpaths:  map[string]string{},
		windows: []string{"about:blank"},
	}
}

func (s *fakeSession) Visit(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return scrapeerr.Navigation(u, err)
	}
	if _, ok := s.pages[u]; !ok {
		return scrapeerr.Navigation(u, errors.New("404 not found"))
	}
	if u == s.watchURL {
		s.atVisit = append(s.atVisit, windowState{windows: len(s.windows), current: s.current})
	}
	s.windows[s.current] = u
	return nil
}

func (s *fakeSession) URL(context.Context) (string, error) {
	return s.windows[s.current], nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	return s.pages[s.windows[s.current]], nil
}

func (s *fakeSession) doc() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.pages[s.windows[s.current]]))
	if err != nil {
		panic(err)
	}
	return doc
}

func (s *fakeSession) WaitFor(ctx context.Context, sel browser.Selector) error {
	els, err := s.Find(ctx, sel)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return scrapeerr.ElementNotFound(sel.String())
	}
	return nil
}

func (s *fakeSession) Find(_ context.Context, sel browser.Selector) ([]browser.Element, error) {
	var matched *goquery.Selection
	switch sel.Kind {
	case browser.KindXPath:
		css, ok := s.xpaths[sel.Value]
		if !ok {
			return nil, fmt.Errorf("fake: unknown xpath %q", sel.Value)
		}
		matched = s.doc().Find(css)
	case browser.KindLinkText:
		matched = s.doc().Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.TrimSpace(a.Text()) == sel.Value
		})
	default:
		matched = s.doc().Find(sel.Value)
	}

	var els []browser.Element
	matched.Each(func(_ int, e *goquery.Selection) {
		els = append(els, &fakeElement{s: s, sel: e})
	})
	return els, nil
}

func (s *fakeSession) Windows(context.Context) (int, error) {
	return len(s.windows), nil
}

func (s *fakeSession) WaitForWindows(_ context.Context, n int) error {
	if len(s.windows) < n {
		return scrapeerr.ElementNotFound("window")
	}
	return nil
}

func (s *fakeSession) Current() int {
	return s.current
}

func (s *fakeSession) SwitchWindow(_ context.Context, i int) error {
	if i < 0 {
		i = len(s.windows) + i
	}
	if i < 0 || i >= len(s.windows) {
		return fmt.Errorf("window %d out of range", i)
	}
	s.current = i
	return nil
}

func (s *fakeSession) CloseWindow(_ context.Context, i int) error {
	if i < 0 {
		i = len(s.windows) + i
	}
	if i < 0 || i >= len(s.windows) || len(s.windows) == 1 {
		return fmt.Errorf("cannot close window %d", i)
	}
	s.windows = append(s.windows[:i], s.windows[i+1:]...)
	s.closed++
	switch {
	case s.current == i:
		s.current = 0
	case s.current > i:
		s.current--
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.windows = nil
	return nil
}

type fakeElement struct {
	s   *fakeSession
	sel *goquery.Selection
}

func (e *fakeElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *fakeElement) Attr(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *fakeElement) Click(context.Context) error {
	href, ok := e.sel.Attr("data-href")
	if !ok {
		href, ok = e.sel.Attr("href")
	}
	if !ok {
		return nil
	}
	base, err := url.Parse(e.s.windows[e.s.current])
	if err != nil {
		return err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return err
	}
	target := base.ResolveReference(ref).String()

	if e.sel.AttrOr("target", "") == "_blank" {
		e.s.windows = append(e.s.windows, target)
		e.s.opened++
		return nil
	}
	e.s.windows[e.s.current] = target
	return nil
}

// fakeFetcher returns canned bodies
type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, u string) (string, error) {
	body, ok := f[u]
	if !ok {
		return "", scrapeerr.Navigation(u, errors.New("404 not found"))
	}
	return body, nil
}
