package extract

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const trendsHTML = `<html><body>
<div id="trend-table"><div class="enOdEe-wZVHld-zg7Cn-haAclf"><table>
<thead><tr><th>x</th></tr></thead>
<tbody><tr><td>ignored</td></tr></tbody>
<tbody>
  <tr>
    <td><div class="mZ3RIc">  颱風動態 </div></td>
    <td>
      <button data-idom-class="b5M0dd" data-term="颱風假"></button>
      <button data-idom-class="b5M0dd"></button>
      <button data-idom-class="b5M0dd" data-term="停班停課"></button>
    </td>
  </tr>
  <tr>
    <td><span>no main keyword</span></td>
  </tr>
</tbody>
</table></div></div>
</body></html>`

const portalHTML = `<html><body>
<ul>
  <li id="hot_keyword_area_word_0" data-desc="立委"><a href="https://news.ltn.com.tw/1">立委</a></li>
  <li id="hot_keyword_area_word_1" data-desc="股市"></li>
  <li id="hot_keyword_area_word_2"><a href="/3">?</a></li>
</ul>
</body></html>`

type htmlPage struct {
	html string
}

func (p htmlPage) URL() string { return "https://example.test/" }
func (p htmlPage) WaitFor(context.Context, fetcher.Selector, time.Duration) error {
	return nil
}
func (p htmlPage) HTML(context.Context) (string, error) { return p.html, nil }
func (p htmlPage) Reload(context.Context) error         { return nil }
func (p htmlPage) Close() error                         { return nil }

func TestTrendRowCSS(t *testing.T) {
	sel := config.DefaultConfig().Harvest.Selectors
	src, err := NewRowSource(sel, testLogger)
	require.NoError(t, err)

	rows, err := src.Rows(context.Background(), htmlPage{html: trendsHTML}, RoleTrendRow)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	f, err := TrendRow(rows[0], sel)
	require.NoError(t, err)
	require.Equal(t, "颱風動態", f.MainKeyword)
	require.Equal(t, []string{"颱風假", "", "停班停課"}, f.RelatedKeywords)

	f, err = TrendRow(rows[1], sel)
	require.NoError(t, err)
	require.Equal(t, "", f.MainKeyword)
	require.NotNil(t, f.RelatedKeywords)
	require.Empty(t, f.RelatedKeywords)
}

func TestHotKeywordCSS(t *testing.T) {
	sel := config.DefaultConfig().Harvest.Selectors
	src, err := NewRowSource(sel, testLogger)
	require.NoError(t, err)

	rows, err := src.Rows(context.Background(), htmlPage{html: portalHTML}, RoleHotKeyword)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	want := []HotFields{
		{Keyword: "立委", Link: "https://news.ltn.com.tw/1"},
		{Keyword: "股市", Link: ""},
		{Keyword: "", Link: "/3"},
	}
	for i, row := range rows {
		f, err := HotKeyword(row, sel)
		require.NoError(t, err)
		require.Equal(t, want[i], f)
	}
}

func TestTrendRowXPath(t *testing.T) {
	sel := config.SelectorConfig{
		Kind:             fetcher.KindXPath,
		TrendRow:         `//div[@id="trend-table"]//tbody[2]/tr`,
		MainKeyword:      `.//div[contains(@class,"mZ3RIc")]`,
		RelatedKeyword:   `.//*[@data-idom-class="b5M0dd"]`,
		RelatedAttribute: "data-term",
	}
	src, err := NewRowSource(sel, testLogger)
	require.NoError(t, err)

	rows, err := src.Rows(context.Background(), htmlPage{html: trendsHTML}, RoleTrendRow)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	f, err := TrendRow(rows[0], sel)
	require.NoError(t, err)
	require.Equal(t, "颱風動態", f.MainKeyword)
	require.Equal(t, []string{"颱風假", "", "停班停課"}, f.RelatedKeywords)
}

func TestMalformedRowRecovered(t *testing.T) {
	sel := config.SelectorConfig{
		Kind:             fetcher.KindXPath,
		TrendRow:         `//tr`,
		MainKeyword:      `.//div[`,
		RelatedKeyword:   `.//button`,
		RelatedAttribute: "data-term",
	}
	src, err := NewRowSource(sel, testLogger)
	require.NoError(t, err)

	rows, err := src.Rows(context.Background(), htmlPage{html: trendsHTML}, RoleTrendRow)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	_, err = TrendRow(rows[0], sel)
	require.Error(t, err)
}

func TestNoRowsIsNotAnError(t *testing.T) {
	src, err := NewRowSource(config.DefaultConfig().Harvest.Selectors, testLogger)
	require.NoError(t, err)

	rows, err := src.Rows(context.Background(), htmlPage{html: "<html></html>"}, RoleTrendRow)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUnknownRole(t *testing.T) {
	src, err := NewRowSource(config.DefaultConfig().Harvest.Selectors, testLogger)
	require.NoError(t, err)

	_, err = src.Selector(Role("sidebar"))
	require.ErrorIs(t, err, types.ErrUnknownRole)
}

func TestNewLocatorRejectsUnknownKind(t *testing.T) {
	_, err := NewLocator("regex")
	require.Error(t, err)
}
