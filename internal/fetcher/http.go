package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

const maxBodySize = 10 * 1024 * 1024 // 10MB

// HTTPFetcher implements PageFetcher with plain GET requests. It suits
// sources that render their keyword lists server-side.
type HTTPFetcher struct {
	client   *http.Client
	identity Identity
	logger   *slog.Logger
}

// NewHTTPFetcher creates a new static HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}

	if pm := proxiesFor(&cfg.Proxy, logger); pm != nil {
		transport.Proxy = pm.ProxyFunc()
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Browser.NavigationTimeout,
		},
		identity: IdentityFromConfig(&cfg.Browser),
		logger:   logger.With("component", "http_fetcher"),
	}
}

// Open fetches url once and returns a static page over the body.
func (f *HTTPFetcher) Open(ctx context.Context, url string) (Page, error) {
	p := &staticPage{fetcher: f, url: url}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewFetchError(url, "request", err)
	}

	req.Header = f.identity.Header()
	if f.identity.UserAgent != "" {
		req.Header.Set("User-Agent", f.identity.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, types.NewFetchError(url, "get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, types.NewFetchError(url, "get", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, types.NewFetchError(url, "read body", err)
	}

	f.logger.Debug("http fetch complete",
		"url", url,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}

// decodeBody reads the response body honouring Content-Encoding.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	return io.ReadAll(io.LimitReader(reader, maxBodySize))
}

// staticPage is a Page over a fetched body. Selector waits are immediate
// presence checks since the document cannot change without a reload.
type staticPage struct {
	fetcher *HTTPFetcher
	url     string
	body    []byte
}

func (p *staticPage) URL() string { return p.url }

func (p *staticPage) WaitFor(ctx context.Context, sel Selector, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	found, err := p.matches(sel)
	if err != nil {
		return types.NewFetchError(p.url, "wait selector", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", types.ErrSelectorTimeout, sel)
	}
	return nil
}

func (p *staticPage) matches(sel Selector) (bool, error) {
	switch sel.Kind {
	case KindXPath:
		doc, err := htmlquery.Parse(bytes.NewReader(p.body))
		if err != nil {
			return false, err
		}
		node, err := htmlquery.Query(doc, sel.Expr)
		if err != nil {
			return false, err
		}
		return node != nil, nil
	default:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
		if err != nil {
			return false, err
		}
		return doc.Find(sel.Expr).Length() > 0, nil
	}
}

func (p *staticPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(p.body), nil
}

func (p *staticPage) Reload(ctx context.Context) error {
	body, err := p.fetcher.get(ctx, p.url)
	if err != nil {
		return err
	}
	p.body = body
	return nil
}

func (p *staticPage) Close() error {
	p.body = nil
	return nil
}
