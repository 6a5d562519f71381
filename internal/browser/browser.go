// Package browser implements session.TabController on top of a visible
// Chrome window driven through the DevTools protocol.
//
// Chrome keeps its own cookie store. When a login tab is closed after the
// user signed in, the cookies of the page it landed on are copied into the
// HTTP client's jar so that subsequent API requests carry the session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/session"
)

// CookieSink receives cookies captured from a login tab.
type CookieSink interface {
	SetCookies(rawURL string, cookies []*http.Cookie)
}

// Options configures the Chrome process.
type Options struct {
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	// UserDataDir keeps a browser profile between runs when set.
	UserDataDir string
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller opens login tabs in a Chrome window started on first use.
type Controller struct {
	opts Options
	sink CookieSink
	log  *zap.SugaredLogger

	startOnce     sync.Once
	startErr      error
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	mu   sync.Mutex
	tabs map[session.TabHandle]*tab
}

var _ session.TabController = (*Controller)(nil)

// New creates a Controller. Chrome is not started until a tab is opened.
func New(opts Options, sink CookieSink, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		opts: opts,
		sink: sink,
		log:  log,
		tabs: make(map[session.TabHandle]*tab),
	}
}

func (c *Controller) start() error {
	c.startOnce.Do(func() {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", false),
			chromedp.Flag("hide-scrollbars", false),
			chromedp.Flag("mute-audio", false),
		)
		if c.opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
		}
		if c.opts.UserDataDir != "" {
			allocOpts = append(allocOpts, chromedp.UserDataDir(c.opts.UserDataDir))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			c.startErr = fmt.Errorf("starting browser: %w", err)
			return
		}
		c.browserCtx = browserCtx
		c.cancelBrowser = cancelBrowser
		c.cancelAlloc = cancelAlloc
		c.log.Debugw("browser started")
	})
	return c.startErr
}

// OpenTab opens a new tab at rawURL and waits for it to load.
func (c *Controller) OpenTab(ctx context.Context, rawURL string) (session.TabHandle, error) {
	if err := c.start(); err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, chromedp.Navigate(rawURL)) }()

	select {
	case err := <-done:
		if err != nil {
			cancel()
			return "", fmt.Errorf("opening tab: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return "", ctx.Err()
	}

	t := chromedp.FromContext(tabCtx).Target
	if t == nil {
		cancel()
		return "", errors.New("opening tab: no target attached")
	}
	h := session.TabHandle(t.TargetID)

	c.mu.Lock()
	c.tabs[h] = &tab{ctx: tabCtx, cancel: cancel}
	c.mu.Unlock()
	return h, nil
}

// Tab returns the tab's current URL, or nil if the user closed the tab or
// the whole window.
func (c *Controller) Tab(ctx context.Context, h session.TabHandle) (*session.TabInfo, error) {
	c.mu.Lock()
	_, ok := c.tabs[h]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown tab %q", h)
	}
	if c.browserCtx.Err() != nil {
		return nil, nil
	}

	infos, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		if c.browserCtx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	return findTab(infos, h), nil
}

func findTab(infos []*target.Info, h session.TabHandle) *session.TabInfo {
	for _, info := range infos {
		if info.TargetID == target.ID(h) && info.Type == "page" {
			return &session.TabInfo{URL: info.URL}
		}
	}
	return nil
}

// CloseTab hands the tab's cookies to the sink and closes it.
func (c *Controller) CloseTab(ctx context.Context, h session.TabHandle) error {
	c.mu.Lock()
	t, ok := c.tabs[h]
	delete(c.tabs, h)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown tab %q", h)
	}
	defer t.cancel()

	if c.sink == nil {
		return nil
	}
	var location string
	var cookies []*network.Cookie
	err := chromedp.Run(t.ctx,
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("reading tab cookies: %w", err)
	}
	if hc := toHTTPCookies(location, cookies); len(hc) > 0 {
		c.sink.SetCookies(location, hc)
		c.log.Debugw("session cookies handed to client", "cookies", len(hc))
	}
	return nil
}

// Close shuts the browser down.
func (c *Controller) Close() error {
	c.mu.Lock()
	for h, t := range c.tabs {
		t.cancel()
		delete(c.tabs, h)
	}
	c.mu.Unlock()
	if c.cancelBrowser != nil {
		c.cancelBrowser()
		c.cancelAlloc()
	}
	return nil
}

// toHTTPCookies converts DevTools cookies for use with pageURL. Cookies
// scoped to exactly the page host stay host-only.
func toHTTPCookies(pageURL string, in []*network.Cookie) []*http.Cookie {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := u.Hostname()

	out := make([]*http.Cookie, 0, len(in))
	for _, ck := range in {
		if ck == nil || ck.Name == "" {
			continue
		}
		hc := &http.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HttpOnly: ck.HTTPOnly,
		}
		if d := strings.TrimPrefix(ck.Domain, "."); d != "" && d != host {
			hc.Domain = d
		}
		if ck.Expires > 0 {
			sec := int64(ck.Expires)
			hc.Expires = time.Unix(sec, 0)
		}
		out = append(out, hc)
	}
	return out
}
