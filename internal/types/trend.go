package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source identifies where a trend record was harvested from.
type Source string

const (
	SourceSearchTrends Source = "Google Trends"
	SourceNewsPortal   Source = "自由時報"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceSearchTrends || s == SourceNewsPortal
}

// TrendRecord is one harvested keyword signal from a single source/category.
type TrendRecord struct {
	Source          Source
	Category        string
	Rank            int
	MainKeyword     string
	RelatedKeywords []string
	Link            string
}

type searchTrendsJSON struct {
	Source          Source   `json:"source"`
	Category        string   `json:"category"`
	Rank            int      `json:"rank"`
	MainKeyword     string   `json:"main_keyword"`
	RelatedKeywords []string `json:"related_keywords"`
}

type newsPortalJSON struct {
	Source      Source `json:"source"`
	Rank        int    `json:"rank"`
	MainKeyword string `json:"main_keyword"`
	Link        string `json:"link"`
}

// MarshalJSON emits the key set that belongs to the record's source.
func (r TrendRecord) MarshalJSON() ([]byte, error) {
	if r.Source == SourceNewsPortal {
		return json.Marshal(newsPortalJSON{
			Source:      r.Source,
			Rank:        r.Rank,
			MainKeyword: r.MainKeyword,
			Link:        r.Link,
		})
	}
	related := r.RelatedKeywords
	if related == nil {
		related = []string{}
	}
	return json.Marshal(searchTrendsJSON{
		Source:          r.Source,
		Category:        r.Category,
		Rank:            r.Rank,
		MainKeyword:     r.MainKeyword,
		RelatedKeywords: related,
	})
}

// UnmarshalJSON is lenient: category may be a number, rank and the keyword
// fields may be missing. Missing values are left zero for callers to default.
func (r *TrendRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Source          Source          `json:"source"`
		Category        json.RawMessage `json:"category"`
		Rank            json.RawMessage `json:"rank"`
		MainKeyword     *string         `json:"main_keyword"`
		RelatedKeywords []*string       `json:"related_keywords"`
		Link            *string         `json:"link"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	category, err := scalarString(aux.Category)
	if err != nil {
		return fmt.Errorf("category: %w", err)
	}
	rank := 0
	if rs, err := scalarString(aux.Rank); err != nil {
		return fmt.Errorf("rank: %w", err)
	} else if rs != "" {
		f, err := strconv.ParseFloat(rs, 64)
		if err != nil {
			return fmt.Errorf("rank %q: %w", rs, err)
		}
		rank = int(f)
	}

	*r = TrendRecord{
		Source:   aux.Source,
		Category: category,
		Rank:     rank,
	}
	if aux.MainKeyword != nil {
		r.MainKeyword = *aux.MainKeyword
	}
	if aux.Link != nil {
		r.Link = *aux.Link
	}
	r.RelatedKeywords = make([]string, 0, len(aux.RelatedKeywords))
	for _, kw := range aux.RelatedKeywords {
		if kw == nil {
			r.RelatedKeywords = append(r.RelatedKeywords, "")
			continue
		}
		r.RelatedKeywords = append(r.RelatedKeywords, *kw)
	}
	return nil
}

// scalarString renders a JSON string or number as a plain string; null and
// absent values yield "".
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return strings.TrimSpace(n.String()), nil
}
