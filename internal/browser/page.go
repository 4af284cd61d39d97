// Package browser drives a Chromium tab through playwright. The tab is the
// page location both loops compare against, the source of navigation
// triggers and, through its <video> element, the visible surface.
package browser

import (
	"context"
	"strings"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/media"
	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/alvarorichard/ceddoskip/internal/youtube"
	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
)

// driver is the part of playwright.Page this package uses.
type driver interface {
	URL() string
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	Content() (string, error)
	IsClosed() bool
}

// Options controls the launched browser.
type Options struct {
	Headless bool
}

// Page is an open tab.
type Page struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	d       driver
	// fetch looks the owner up from the watch page when the tab itself
	// does not show it, as on embed pages.
	fetch func(ctx context.Context, watchURL string) (string, error)
}

// maxChannelAttempts bounds how many polls wait for the owner link of a
// freshly navigated watch page to render.
const maxChannelAttempts = 10

const ownerScript = `() => {
	const a = document.querySelector(
		'ytd-video-owner-renderer a[href*="/@"], #owner a[href*="/@"], #upload-info a[href*="/@"]');
	return a ? a.getAttribute('href') : '';
}`

// Launch starts Chromium and opens url. The playwright driver and browser
// are downloaded on first use.
func Launch(url string, opts Options) (*Page, error) {
	pw, err := playwright.Run()
	if err != nil {
		util.Info("installing playwright chromium, this only happens once")
		if ierr := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); ierr != nil {
			return nil, errors.Wrap(ierr, "installing playwright")
		}
		if pw, err = playwright.Run(); err != nil {
			return nil, errors.Wrap(err, "starting playwright")
		}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--autoplay-policy=no-user-gesture-required"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errors.Wrap(err, "launching chromium")
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errors.Wrap(err, "opening tab")
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errors.Wrapf(err, "loading %s", url)
	}

	fetch := func(ctx context.Context, watchURL string) (string, error) {
		return youtube.FetchChannel(ctx, nil, watchURL)
	}
	return &Page{pw: pw, browser: browser, d: page, fetch: fetch}, nil
}

// Location returns the tab's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.d.IsClosed() {
		return "", media.ErrClosed
	}
	return p.d.URL(), nil
}

// Video returns the visible surface backed by the page's main <video>.
func (p *Page) Video() *Video {
	return &Video{d: p.d}
}

// Channel returns the @handle of the channel that owns the video
// on screen, or "" if the owner link has not rendered yet.
func (p *Page) Channel(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.d.IsClosed() {
		return "", media.ErrClosed
	}

	v, err := p.d.Evaluate(ownerScript)
	if err != nil {
		return "", errors.Wrap(err, "reading owner link")
	}
	if href, _ := v.(string); href != "" {
		return "@" + youtube.NormalizeHandle(href), nil
	}

	html, err := p.d.Content()
	if err != nil {
		return "", errors.Wrap(err, "reading page content")
	}
	ch, err := youtube.ChannelFromHTML(strings.NewReader(html))
	if !errors.Is(err, youtube.ErrNoChannel) {
		return ch, err
	}

	if p.fetch != nil {
		if id, err := youtube.VideoID(p.d.URL()); err == nil {
			return p.fetch(ctx, youtube.WatchURL(id))
		}
	}
	return "", nil
}

// Events polls the tab and emits a PageEvent once per navigation to a
// watch page, after the owner link appears or maxChannelAttempts polls
// pass. The channel is closed when the tab closes or ctx ends.
func (p *Page) Events(ctx context.Context, interval time.Duration) <-chan models.PageEvent {
	out := make(chan models.PageEvent)
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last, pending string
		attempts := 0
		for {
			url, err := p.Location(ctx)
			if err != nil {
				return
			}
			if url != last {
				last = url
				pending = ""
				if _, err := youtube.VideoID(url); err == nil {
					pending, attempts = url, 0
				}
			}

			if pending != "" {
				ch, err := p.Channel(ctx)
				if err != nil {
					util.Debug("channel lookup failed", "url", pending, "error", err)
				}
				attempts++
				if ch != "" || attempts >= maxChannelAttempts {
					select {
					case out <- models.PageEvent{ChannelID: ch, URL: pending}:
					case <-ctx.Done():
						return
					}
					pending = ""
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// Close shuts the browser and the playwright driver down.
func (p *Page) Close() error {
	var firstErr error
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			firstErr = errors.Wrap(err, "closing browser")
		}
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "stopping playwright")
		}
	}
	return firstErr
}
