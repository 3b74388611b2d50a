package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"mars-scraper/scrapeerr"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const windowPollInterval = 100 * time.Millisecond

// Options configures the launched browser
type Options struct {
	Headless    bool
	Bin         string // empty: look up a local Chrome/Chromium, else let rod download one
	UserDataDir string
	StepTimeout time.Duration
}

// RodSession implements Session using rod
type RodSession struct {
	browser *rod.Browser
	pages   []*rod.Page
	current int
	timeout time.Duration
}

// Launch starts a browser and opens the first window.
// The caller must Close the session, also when later steps fail.
func Launch(ctx context.Context, opts Options) (*RodSession, error) {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 30 * time.Second
	}

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			log.Warn("failed to create user data directory, using a temporary one", "dir", opts.UserDataDir, "err", err)
			opts.UserDataDir = ""
		}
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-breakpad").
		Set("disable-default-apps").
		Set("disable-hang-monitor").
		Set("disable-popup-blocking").
		Set("disable-sync").
		Set("disable-translate").
		Set("mute-audio").
		Set("use-mock-keychain")
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	bin := opts.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to open first window: %w", err)
	}

	log.Debug("browser launched", "bin", bin, "headless", opts.Headless)
	return &RodSession{
		browser: b,
		pages:   []*rod.Page{page},
		timeout: opts.StepTimeout,
	}, nil
}

// Close closes the browser and every window
func (s *RodSession) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.pages = nil
	return err
}

// page returns the focused page bound to ctx and the step timeout.
// Callers must CancelTimeout it when the step is done.
func (s *RodSession) page(ctx context.Context) *rod.Page {
	return s.pages[s.current].Context(ctx).Timeout(s.timeout)
}

// Visit implements Session
func (s *RodSession) Visit(ctx context.Context, url string) error {
	p := s.page(ctx)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return scrapeerr.Navigation(url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return scrapeerr.Navigation(url, fmt.Errorf("page did not finish loading: %w", err))
	}
	return nil
}

// URL implements Session
func (s *RodSession) URL(ctx context.Context) (string, error) {
	p := s.page(ctx)
	defer p.CancelTimeout()

	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get page URL: %w", err)
	}
	return info.URL, nil
}

// HTML implements Session
func (s *RodSession) HTML(ctx context.Context) (string, error) {
	p := s.page(ctx)
	defer p.CancelTimeout()

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// WaitFor implements Session
func (s *RodSession) WaitFor(ctx context.Context, sel Selector) error {
	p := s.page(ctx)
	defer p.CancelTimeout()
	var err error
	switch sel.Kind {
	case KindXPath:
		_, err = p.ElementX(sel.Value)
	case KindLinkText:
		_, err = p.ElementR("a", `^\s*`+regexp.QuoteMeta(sel.Value)+`\s*$`)
	default:
		_, err = p.Element(sel.Value)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &scrapeerr.Error{Kind: scrapeerr.KindElementNotFound, Target: sel.String(), Err: err}
	}
	return nil
}

// Find implements Session
func (s *RodSession) Find(ctx context.Context, sel Selector) ([]Element, error) {
	p := s.page(ctx)
	defer p.CancelTimeout()
	var (
		found rod.Elements
		err   error
	)
	switch sel.Kind {
	case KindXPath:
		found, err = p.ElementsX(sel.Value)
	case KindLinkText:
		var links rod.Elements
		links, err = p.Elements("a")
		for _, a := range links {
			text, textErr := a.Text()
			if textErr == nil && strings.TrimSpace(text) == sel.Value {
				found = append(found, a)
			}
		}
	default:
		found, err = p.Elements(sel.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}

	els := make([]Element, 0, len(found))
	for _, el := range found {
		els = append(els, &rodElement{el: el, timeout: s.timeout})
	}
	return els, nil
}

// sync reconciles the window list with the browser's open pages.
// Pages not seen before are appended, closed ones are dropped.
func (s *RodSession) sync(ctx context.Context) error {
	open, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	alive := make(map[proto.TargetTargetID]*rod.Page, len(open))
	for _, p := range open {
		alive[p.TargetID] = p
	}

	focused := s.pages[s.current].TargetID
	known := make(map[proto.TargetTargetID]bool, len(s.pages))
	kept := s.pages[:0]
	for _, p := range s.pages {
		if _, ok := alive[p.TargetID]; ok {
			kept = append(kept, p)
			known[p.TargetID] = true
		}
	}
	for _, p := range open {
		if !known[p.TargetID] {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return errors.New("no open windows left")
	}

	s.pages = kept
	s.current = 0
	for i, p := range s.pages {
		if p.TargetID == focused {
			s.current = i
			break
		}
	}
	return nil
}

// Windows implements Session
func (s *RodSession) Windows(ctx context.Context) (int, error) {
	if err := s.sync(ctx); err != nil {
		return 0, err
	}
	return len(s.pages), nil
}

// WaitForWindows implements Session
func (s *RodSession) WaitForWindows(ctx context.Context, n int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(windowPollInterval)
	defer ticker.Stop()

	for {
		count, err := s.Windows(ctx)
		if err != nil {
			return err
		}
		if count >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return &scrapeerr.Error{
				Kind:   scrapeerr.KindElementNotFound,
				Target: "window",
				Err:    fmt.Errorf("expected %d windows, have %d: %w", n, count, ctx.Err()),
			}
		case <-ticker.C:
		}
	}
}

// Current implements Session
func (s *RodSession) Current() int {
	return s.current
}

// SwitchWindow implements Session
func (s *RodSession) SwitchWindow(ctx context.Context, i int) error {
	if err := s.sync(ctx); err != nil {
		return err
	}
	if i < 0 {
		i = len(s.pages) + i
	}
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("window %d out of range (%d open)", i, len(s.pages))
	}
	if _, err := s.pages[i].Context(ctx).Activate(); err != nil {
		return fmt.Errorf("failed to activate window %d: %w", i, err)
	}
	s.current = i
	return nil
}

// CloseWindow implements Session
func (s *RodSession) CloseWindow(ctx context.Context, i int) error {
	if err := s.sync(ctx); err != nil {
		return err
	}
	if i < 0 {
		i = len(s.pages) + i
	}
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("window %d out of range (%d open)", i, len(s.pages))
	}
	if len(s.pages) == 1 {
		return errors.New("refusing to close the last window")
	}

	if err := s.pages[i].Context(ctx).Close(); err != nil {
		return fmt.Errorf("failed to close window %d: %w", i, err)
	}
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	switch {
	case s.current == i:
		s.current = 0
	case s.current > i:
		s.current--
	}
	return nil
}

type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

// step detaches the element from the context of the Find that returned it
func (e *rodElement) step(ctx context.Context) *rod.Element {
	return e.el.Context(ctx).Timeout(e.timeout)
}

func (e *rodElement) Text() (string, error) {
	el := e.step(context.Background())
	defer el.CancelTimeout()
	return el.Text()
}

func (e *rodElement) Attr(name string) (string, bool, error) {
	el := e.step(context.Background())
	defer el.CancelTimeout()

	v, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	el := e.step(ctx)
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}
