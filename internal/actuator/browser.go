// Package actuator provides the browser backend of the service.Actuator
// interface, driving a Chromium page through go-rod.
package actuator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// Browser drives a single shared Chromium page. The browser process is
// launched lazily on first use so an idle daemon consumes no resources.
type Browser struct {
	mu       sync.Mutex
	headless bool
	browser  *rod.Browser
	page     *rod.Page
}

func NewBrowser(headless bool) *Browser {
	return &Browser{headless: headless}
}

// ensurePage starts the browser and opens a blank page if needed.
// Must be called with b.mu held.
func (b *Browser) ensurePage() (*rod.Page, error) {
	if b.page != nil {
		return b.page, nil
	}

	l := launcher.New().Headless(b.headless)
	url, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch browser")
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, errors.Wrap(err, "connect to browser")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, errors.Wrap(err, "create page")
	}

	b.browser = browser
	b.page = page
	return page, nil
}

func (b *Browser) currentPage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	page, err := b.ensurePage()
	if err != nil {
		return nil, err
	}
	return page.Context(ctx), nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	page, err := b.currentPage(ctx)
	if err != nil {
		return err
	}
	if err := page.Navigate(url); err != nil {
		return errors.Wrapf(err, "navigate to %s", url)
	}
	// WaitLoad failing is non-fatal: the page may have rendered enough.
	_ = page.WaitLoad()
	return nil
}

func (b *Browser) Click(ctx context.Context, target string) error {
	page, err := b.currentPage(ctx)
	if err != nil {
		return err
	}
	el, err := page.Element(target)
	if err != nil {
		return errors.Wrapf(err, "find element %s", target)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errors.Wrapf(err, "click %s", target)
	}
	return nil
}

func (b *Browser) TypeText(ctx context.Context, target, text string) error {
	page, err := b.currentPage(ctx)
	if err != nil {
		return err
	}
	el, err := page.Element(target)
	if err != nil {
		return errors.Wrapf(err, "find element %s", target)
	}
	if err := el.Input(text); err != nil {
		return errors.Wrapf(err, "type into %s", target)
	}
	return nil
}

// Extract reads the element's text. JSON content is decoded so structured
// verification can apply; plain text is wrapped as {"text": ...}.
func (b *Browser) Extract(ctx context.Context, target string, _ any) (any, error) {
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	el, err := page.Element(target)
	if err != nil {
		return nil, errors.Wrapf(err, "find element %s", target)
	}
	text, err := el.Text()
	if err != nil {
		return nil, errors.Wrapf(err, "read text of %s", target)
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded, nil
	}
	return map[string]any{"text": text}, nil
}

func (b *Browser) Submit(ctx context.Context, target string) error {
	page, err := b.currentPage(ctx)
	if err != nil {
		return err
	}
	el, err := page.Element(target)
	if err != nil {
		return errors.Wrapf(err, "find element %s", target)
	}
	if _, err := el.Eval(`() => { const f = this.closest('form'); if (f) { f.submit(); } }`); err != nil {
		return errors.Wrapf(err, "submit %s", target)
	}
	return nil
}

func (b *Browser) Snapshot(ctx context.Context) (string, error) {
	page, err := b.currentPage(ctx)
	if err != nil {
		return "", err
	}
	html, err := page.HTML()
	if err != nil {
		return "", errors.Wrap(err, "read page html")
	}
	return html, nil
}

// Close shuts down the page and browser process.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page != nil {
		_ = b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}
