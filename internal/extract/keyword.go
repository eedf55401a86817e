package extract

import (
	"fmt"

	"github.com/IshaanNene/TrendPulse/internal/config"
)

// TrendFields are the keyword fields of one search-trends row.
type TrendFields struct {
	MainKeyword     string
	RelatedKeywords []string
}

// HotFields are the keyword fields of one news-portal hot keyword.
type HotFields struct {
	Keyword string
	Link    string
}

// TrendRow reads a search-trends row. A missing main keyword element gives
// an empty keyword. A panic from a malformed row is returned as an error.
func TrendRow(row Row, sel config.SelectorConfig) (f TrendFields, err error) {
	defer recoverRow(&err)

	f.MainKeyword, _ = row.Text(sel.MainKeyword)
	f.RelatedKeywords = row.Attrs(sel.RelatedKeyword, sel.RelatedAttribute)
	return f, nil
}

// HotKeyword reads a news-portal hot keyword element: the keyword from its
// own attribute and the article link from the first matching descendant.
func HotKeyword(row Row, sel config.SelectorConfig) (f HotFields, err error) {
	defer recoverRow(&err)

	f.Keyword, _ = row.Attr(sel.HotAttribute)
	if sel.HotLink != "" {
		f.Link, _ = row.FirstAttr(sel.HotLink, "href")
	}
	return f, nil
}

func recoverRow(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed row: %v", r)
	}
}
