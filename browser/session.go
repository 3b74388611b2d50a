// Package browser drives a single browser session: one process, one or more tabs,
// with every blocking step bounded by a timeout.
package browser

import (
	"context"
	"fmt"

	"mars-scraper/scrapeerr"
)

// Kind is how a Selector locates elements
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
	KindLinkText
)

// Selector locates elements on the focused page
type Selector struct {
	Kind  Kind
	Value string
}

// CSS selects elements by CSS selector
func CSS(v string) Selector { return Selector{Kind: KindCSS, Value: v} }

// XPath selects elements by XPath expression
func XPath(v string) Selector { return Selector{Kind: KindXPath, Value: v} }

// LinkText selects <a> elements whose trimmed text equals v
func LinkText(v string) Selector { return Selector{Kind: KindLinkText, Value: v} }

// TagClass selects elements by tag name and class
func TagClass(tag, class string) Selector {
	if class == "" {
		return CSS(tag)
	}
	return CSS(tag + "." + class)
}

func (s Selector) String() string {
	switch s.Kind {
	case KindXPath:
		return "xpath:" + s.Value
	case KindLinkText:
		return "link:" + s.Value
	default:
		return s.Value
	}
}

// Element is a handle to an element on a page
type Element interface {
	Text() (string, error)
	// Attr returns the attribute value and whether it is present
	Attr(name string) (string, bool, error)
	// Click may navigate the current tab or open a new one
	Click(ctx context.Context) error
}

// Session is a live browser with an ordered list of windows (tabs).
// Window 0 is the tab the session started with.
type Session interface {
	// Visit navigates the focused window to url and waits for the load event
	Visit(ctx context.Context, url string) error
	// URL returns the address of the focused window
	URL(ctx context.Context) (string, error)
	// HTML returns the markup of the focused window
	HTML(ctx context.Context) (string, error)
	// WaitFor polls until sel matches at least one element or the step times out
	WaitFor(ctx context.Context, sel Selector) error
	// Find returns all elements matching sel, possibly none
	Find(ctx context.Context, sel Selector) ([]Element, error)
	// Windows returns the number of open windows
	Windows(ctx context.Context) (int, error)
	// WaitForWindows polls until at least n windows are open
	WaitForWindows(ctx context.Context, n int) error
	// Current returns the index of the focused window
	Current() int
	SwitchWindow(ctx context.Context, i int) error
	// CloseWindow closes window i; closing the focused window moves focus to window 0
	CloseWindow(ctx context.Context, i int) error
	Close() error
}

// Nth returns the i-th element matching sel
func Nth(ctx context.Context, s Session, sel Selector, i int) (Element, error) {
	els, err := s.Find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(els) {
		return nil, &scrapeerr.Error{
			Kind:   scrapeerr.KindElementNotFound,
			Target: sel.String(),
			Err:    fmt.Errorf("index %d out of range (%d matches)", i, len(els)),
		}
	}
	return els[i], nil
}

// First returns the first element matching sel
func First(ctx context.Context, s Session, sel Selector) (Element, error) {
	return Nth(ctx, s, sel, 0)
}
