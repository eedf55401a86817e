// Package extract locates keyword rows in a loaded page and turns them into
// trend record fields.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/TrendPulse/internal/fetcher"
)

// Row is one matched element. Sub-queries use the dialect of the locator
// that produced the row.
type Row interface {
	// Text returns the trimmed text of the first descendant matching expr.
	Text(expr string) (string, bool)

	// Attr returns an attribute of the row element itself.
	Attr(name string) (string, bool)

	// Attrs returns the named attribute of every descendant matching expr,
	// in document order. Missing attributes yield "".
	Attrs(expr, name string) []string

	// FirstAttr returns the named attribute of the first descendant
	// matching expr.
	FirstAttr(expr, name string) (string, bool)
}

// Locator finds rows in a serialized document.
type Locator interface {
	Kind() string
	Locate(doc string, rowExpr string) ([]Row, error)
}

// NewLocator returns the locator for a selector kind.
func NewLocator(kind string) (Locator, error) {
	switch kind {
	case fetcher.KindCSS, "":
		return CSSLocator{}, nil
	case fetcher.KindXPath:
		return XPathLocator{}, nil
	default:
		return nil, fmt.Errorf("unknown locator kind %q", kind)
	}
}

// CSSLocator locates rows with goquery.
type CSSLocator struct{}

func (CSSLocator) Kind() string { return fetcher.KindCSS }

func (CSSLocator) Locate(doc string, rowExpr string) ([]Row, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var rows []Row
	d.Find(rowExpr).Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, cssRow{sel: s})
	})
	return rows, nil
}

type cssRow struct {
	sel *goquery.Selection
}

func (r cssRow) Text(expr string) (string, bool) {
	m := r.sel.Find(expr).First()
	if m.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(m.Text()), true
}

func (r cssRow) Attr(name string) (string, bool) {
	return r.sel.Attr(name)
}

func (r cssRow) Attrs(expr, name string) []string {
	values := []string{}
	r.sel.Find(expr).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(name)
		values = append(values, v)
	})
	return values
}

func (r cssRow) FirstAttr(expr, name string) (string, bool) {
	m := r.sel.Find(expr).First()
	if m.Length() == 0 {
		return "", false
	}
	return m.Attr(name)
}

// XPathLocator locates rows with htmlquery. Sub-queries on its rows are
// evaluated relative to the row node, so they normally start with ".//".
type XPathLocator struct{}

func (XPathLocator) Kind() string { return fetcher.KindXPath }

func (XPathLocator) Locate(doc string, rowExpr string) ([]Row, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	nodes, err := htmlquery.QueryAll(root, rowExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", rowExpr, err)
	}

	rows := make([]Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, xpathRow{node: n})
	}
	return rows, nil
}

type xpathRow struct {
	node *html.Node
}

func (r xpathRow) Text(expr string) (string, bool) {
	n := htmlquery.FindOne(r.node, expr)
	if n == nil {
		return "", false
	}
	return strings.TrimSpace(htmlquery.InnerText(n)), true
}

func (r xpathRow) Attr(name string) (string, bool) {
	return attrOf(r.node, name)
}

func (r xpathRow) Attrs(expr, name string) []string {
	values := []string{}
	for _, n := range htmlquery.Find(r.node, expr) {
		v, _ := attrOf(n, name)
		values = append(values, v)
	}
	return values
}

func (r xpathRow) FirstAttr(expr, name string) (string, bool) {
	n := htmlquery.FindOne(r.node, expr)
	if n == nil {
		return "", false
	}
	return attrOf(n, name)
}

func attrOf(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
