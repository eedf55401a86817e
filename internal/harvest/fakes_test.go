package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/storage"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// trendsDoc renders a search-trends page with one row per keyword. Each row
// carries two related terms.
func trendsDoc(keywords ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="trend-table"><div class="enOdEe-wZVHld-zg7Cn-haAclf"><table>`)
	b.WriteString(`<thead><tr><th>trend</th></tr></thead><tbody><tr><td></td></tr></tbody><tbody>`)
	for _, kw := range keywords {
		fmt.Fprintf(&b, `<tr><td><div class="mZ3RIc">%s</div></td><td>`, kw)
		fmt.Fprintf(&b, `<span data-idom-class="b5M0dd" data-term="%s 1"></span>`, kw)
		fmt.Fprintf(&b, `<span data-idom-class="b5M0dd" data-term="%s 2"></span>`, kw)
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody></table></div></div></body></html>`)
	return b.String()
}

// hotDoc renders a news-portal page with one hot keyword per entry.
func hotDoc(keywords ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul>`)
	for i, kw := range keywords {
		fmt.Fprintf(&b, `<li id="hot_keyword_area_word_%d" data-desc="%s"><a href="https://news.test/%d">%s</a></li>`, i, kw, i, kw)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

// fakePage serves docs in order: the first on open, the next on each reload.
// An empty doc has no rows and makes selector waits time out.
type fakePage struct {
	url       string
	docs      []string
	load      int
	waits     int
	reloads   int
	reloadErr error
	closed    bool
}

func (p *fakePage) current() string {
	if p.load < len(p.docs) {
		return p.docs[p.load]
	}
	return p.docs[len(p.docs)-1]
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) WaitFor(ctx context.Context, sel fetcher.Selector, _ time.Duration) error {
	p.waits++
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.current() == "" {
		return fmt.Errorf("%w: %s", types.ErrSelectorTimeout, sel)
	}
	return nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	if doc := p.current(); doc != "" {
		return doc, nil
	}
	return "<html><body></body></html>", nil
}

func (p *fakePage) Reload(context.Context) error {
	p.reloads++
	if p.reloadErr != nil {
		return p.reloadErr
	}
	p.load++
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// fakeFetcher opens a fresh fakePage per Open. openErrs are consumed one per
// Open of that URL before pages are served. When loseSession is set, every
// Open after the first sessionOpens fails to create a page.
type fakeFetcher struct {
	docs         map[string][]string
	openErrs     map[string][]error
	reloadErr    map[string]error
	pages        []*fakePage
	opens        int
	loseSession  bool
	sessionOpens int
}

func (f *fakeFetcher) Open(ctx context.Context, url string) (fetcher.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.opens++
	if f.loseSession && f.opens > f.sessionOpens {
		return nil, types.NewFetchError(url, types.OpNewPage, errors.New("browser process exited"))
	}
	if errs := f.openErrs[url]; len(errs) > 0 {
		f.openErrs[url] = errs[1:]
		if errs[0] != nil {
			return nil, types.NewFetchError(url, "navigate", errs[0])
		}
	}
	docs, ok := f.docs[url]
	if !ok {
		return nil, types.NewFetchError(url, "navigate", errors.New("connection refused"))
	}
	p := &fakePage{url: url, docs: docs, reloadErr: f.reloadErr[url]}
	f.pages = append(f.pages, p)
	return p, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

type memSink struct {
	mu      sync.Mutex
	err     error
	batches []storage.Batch
}

func (s *memSink) Name() string { return "mem" }
func (s *memSink) Store(_ context.Context, b storage.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	return s.err
}
func (s *memSink) Close() error { return nil }

type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}
