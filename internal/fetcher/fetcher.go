package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/config"
)

// Selector kinds understood by pages and row locators.
const (
	KindCSS   = "css"
	KindXPath = "xpath"
)

// Selector is a DOM query in one of the supported dialects.
type Selector struct {
	Kind string
	Expr string
}

// CSS builds a CSS selector.
func CSS(expr string) Selector { return Selector{Kind: KindCSS, Expr: expr} }

// XPath builds an XPath selector.
func XPath(expr string) Selector { return Selector{Kind: KindXPath, Expr: expr} }

func (s Selector) String() string { return s.Kind + ":" + s.Expr }

// Page is a loaded document handle. Every blocking call is bounded by the
// context and by the fetcher's configured timeouts.
type Page interface {
	// URL returns the address the page was opened with.
	URL() string

	// WaitFor blocks until sel matches at least one element. A timeout is
	// reported as types.ErrSelectorTimeout.
	WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error

	// HTML returns the current serialized DOM.
	HTML(ctx context.Context) (string, error)

	// Reload issues a full reload and waits for the page to settle.
	Reload(ctx context.Context) error

	// Close releases the page.
	Close() error
}

// PageFetcher opens pages with a spoofed client identity. It never retries;
// retries belong to the caller.
type PageFetcher interface {
	// Open navigates to url and waits for a quiescent load.
	Open(ctx context.Context, url string) (Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the PageFetcher named by cfg.Browser.Type.
func New(cfg *config.Config, logger *slog.Logger) (PageFetcher, error) {
	switch cfg.Browser.Type {
	case "http":
		return NewHTTPFetcher(cfg, logger), nil
	case "browser", "":
		var opts []BrowserOption
		if pm := proxiesFor(&cfg.Proxy, logger); pm != nil {
			opts = append(opts, WithBrowserProxy(pm))
		}
		return NewBrowserFetcher(cfg, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Browser.Type)
	}
}
