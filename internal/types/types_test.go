package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrendRecordMarshalBySource(t *testing.T) {
	trends := TrendRecord{Source: SourceSearchTrends, Category: "14", Rank: 1, MainKeyword: "颱風"}
	b, err := json.Marshal(trends)
	require.NoError(t, err)
	require.JSONEq(t, `{"source":"Google Trends","category":"14","rank":1,"main_keyword":"颱風","related_keywords":[]}`, string(b))

	news := TrendRecord{Source: SourceNewsPortal, Rank: 3, MainKeyword: "立法院", Link: "https://news.ltn.com.tw/a?x=1&y=2"}
	b, err = json.Marshal(news)
	require.NoError(t, err)
	require.JSONEq(t, `{"source":"自由時報","rank":3,"main_keyword":"立法院","link":"https://news.ltn.com.tw/a?x=1&y=2"}`, string(b))
}

func TestTrendRecordUnmarshalLenient(t *testing.T) {
	var r TrendRecord
	require.NoError(t, json.Unmarshal([]byte(`{"source":"Google Trends","category":14,"rank":"2","main_keyword":"x","related_keywords":["a",null]}`), &r))
	require.Equal(t, "14", r.Category)
	require.Equal(t, 2, r.Rank)
	require.Equal(t, []string{"a", ""}, r.RelatedKeywords)

	var bare TrendRecord
	require.NoError(t, json.Unmarshal([]byte(`{"source":"自由時報"}`), &bare))
	require.Equal(t, 0, bare.Rank)
	require.Empty(t, bare.Category)
	require.Empty(t, bare.RelatedKeywords)

	var bad TrendRecord
	require.Error(t, json.Unmarshal([]byte(`{"rank":true}`), &bad))
}

func TestParseProcessingStatus(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name string
		raw  *string
		want int
	}{
		{name: "nil", raw: nil, want: 0},
		{name: "empty", raw: str(""), want: 0},
		{name: "int", raw: str("3"), want: 3},
		{name: "float", raw: str("2.0"), want: 2},
		{name: "garbage", raw: str("done"), want: 0},
		{name: "negative", raw: str("-4"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseProcessingStatus(tt.raw))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(ErrSelectorTimeout))
	require.True(t, IsTimeout(fmt.Errorf("wait: %w", ErrSelectorTimeout)))
	require.True(t, IsTimeout(NewFetchError("https://example.com", "navigate", context.DeadlineExceeded)))
	require.False(t, IsTimeout(NewFetchError("https://example.com", "navigate", errors.New("net::ERR_NAME_NOT_RESOLVED"))))
}

func TestFetchErrorBrowserSession(t *testing.T) {
	lost := NewFetchError("https://example.com", OpNewPage, errors.New("browser process exited"))
	require.ErrorIs(t, lost, ErrBrowserSession)
	require.ErrorIs(t, fmt.Errorf("trends: %w", lost), ErrBrowserSession)
	require.NotErrorIs(t, NewFetchError("https://example.com", "navigate", errors.New("reset")), ErrBrowserSession)
}
