package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// stableWindow is how long the DOM and network must stay quiet before a
// load counts as settled.
const stableWindow = 500 * time.Millisecond

// BrowserFetcher implements PageFetcher using a headless browser via Rod.
type BrowserFetcher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      *config.BrowserConfig
	identity Identity
	proxyMgr *ProxyManager
	logger   *slog.Logger
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserProxy sets the proxy manager for browser requests.
func WithBrowserProxy(pm *ProxyManager) BrowserOption {
	return func(bf *BrowserFetcher) { bf.proxyMgr = pm }
}

// NewBrowserFetcher launches Chromium and connects to it. Launch failures
// wrap types.ErrBrowserLaunch and are fatal for a harvest.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:      &cfg.Browser,
		identity: IdentityFromConfig(&cfg.Browser),
		logger:   logger.With("component", "browser_fetcher"),
	}

	for _, opt := range opts {
		opt(bf)
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		bf.launcher.Cleanup()
		return nil, fmt.Errorf("%w: connect: %v", types.ErrBrowserLaunch, err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready",
		"headless", bf.cfg.Headless,
		"stealth", bf.cfg.Stealth,
	)

	return bf, nil
}

// launchBrowser starts a Chromium instance with automation markers disabled.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	}

	if bf.proxyMgr != nil {
		if proxyURL := bf.proxyMgr.Next(); proxyURL != nil {
			l = l.Proxy(proxyURL.String())
		}
	}

	bf.launcher = l
	return l.Launch()
}

// Open creates a fresh page, applies the client identity, navigates and waits
// for the page to settle. The page is closed again if loading fails.
func (bf *BrowserFetcher) Open(ctx context.Context, url string) (Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if bf.cfg.Stealth {
		page, err = stealth.Page(bf.browser)
	} else {
		page, err = bf.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, types.NewFetchError(url, types.OpNewPage, err)
	}

	p := &rodPage{
		page:       page,
		url:        url,
		navTimeout: bf.cfg.NavigationTimeout,
		logger:     bf.logger.With("url", url),
	}

	if err := p.applyIdentity(bf.identity); err != nil {
		_ = page.Close()
		return nil, types.NewFetchError(url, "identity", err)
	}

	if err := p.load(ctx, "navigate", func(pg *rod.Page) error { return pg.Navigate(url) }); err != nil {
		_ = page.Close()
		return nil, err
	}

	return p, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	var err error
	if bf.browser != nil {
		err = bf.browser.Close()
	}
	if bf.launcher != nil {
		bf.launcher.Cleanup()
	}
	return err
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// rodPage adapts a Rod page to Page.
type rodPage struct {
	page       *rod.Page
	url        string
	navTimeout time.Duration
	logger     *slog.Logger
}

func (p *rodPage) URL() string { return p.url }

func (p *rodPage) applyIdentity(id Identity) error {
	if id.UserAgent != "" {
		err := p.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      id.UserAgent,
			AcceptLanguage: id.AcceptLanguage,
		})
		if err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if pairs := id.HeaderPairs(); len(pairs) > 0 {
		if _, err := p.page.SetExtraHeaders(pairs); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
	}
	return nil
}

// load runs a navigation-style action under the navigation timeout and waits
// for the load event. Failing to reach a fully stable DOM is only a warning.
func (p *rodPage) load(ctx context.Context, op string, action func(*rod.Page) error) error {
	pg := p.page.Context(ctx).Timeout(p.navTimeout)
	defer pg.CancelTimeout()

	if err := action(pg); err != nil {
		return types.NewFetchError(p.url, op, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return types.NewFetchError(p.url, op+" wait load", err)
	}
	if err := pg.WaitStable(stableWindow); err != nil {
		p.logger.Warn("page stability timeout, continuing", "op", op, "error", err)
	}
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error {
	pg := p.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	var err error
	switch sel.Kind {
	case KindXPath:
		_, err = pg.ElementX(sel.Expr)
	default:
		_, err = pg.Element(sel.Expr)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s", types.ErrSelectorTimeout, sel)
	}
	return types.NewFetchError(p.url, "wait selector", err)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", types.NewFetchError(p.url, "html", err)
	}
	return html, nil
}

func (p *rodPage) Reload(ctx context.Context) error {
	return p.load(ctx, "reload", func(pg *rod.Page) error { return pg.Reload() })
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
