package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var defaults = SnapshotDefaults{Category: "11", Rank: 999}

func sampleRecords() []types.TrendRecord {
	return []types.TrendRecord{
		{
			Source:          types.SourceSearchTrends,
			Category:        "14",
			Rank:            1,
			MainKeyword:     "颱風",
			RelatedKeywords: []string{"颱風假", ""},
		},
		{
			Source:      types.SourceNewsPortal,
			Rank:        1,
			MainKeyword: "立委",
			Link:        "https://news.ltn.com.tw/a?b=1&c=2",
		},
	}
}

func TestSnapshotWriteCreatesDirAndKeepsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "trending_keywords.json")
	sf := NewSnapshotFile(path, testLogger)

	require.NoError(t, sf.Write(sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	require.Contains(t, body, `"main_keyword": "颱風"`)
	require.Contains(t, body, `"link": "https://news.ltn.com.tw/a?b=1&c=2"`)
	require.Contains(t, body, "\n  {\n    \"source\"")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSnapshotStoreEmptyBatchWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, NewSnapshotFile(path, testLogger).Store(context.Background(), Batch{RunID: "r1"}))

	recs, err := ReadSnapshot(path, defaults)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestSnapshotRoundTripAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, NewSnapshotFile(path, testLogger).Write(sampleRecords()))

	got, err := ReadSnapshot(path, defaults)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "14", got[0].Category)
	require.Equal(t, []string{"颱風假", ""}, got[0].RelatedKeywords)

	require.Equal(t, types.SourceNewsPortal, got[1].Source)
	require.Equal(t, "11", got[1].Category)
	require.Empty(t, got[1].RelatedKeywords)
}

func TestReadSnapshotMissingRank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"source":"Google Trends","category":3,"main_keyword":"x"}]`), 0o644))

	got, err := ReadSnapshot(path, defaults)
	require.NoError(t, err)
	require.Equal(t, "3", got[0].Category)
	require.Equal(t, 999, got[0].Rank)
}

func TestReadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSnapshot(filepath.Join(dir, "absent.json"), defaults)
	require.ErrorIs(t, err, types.ErrSnapshotMissing)
	var se *types.SnapshotError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "read", se.Op)

	tests := map[string]string{
		"truncated": `[{"source":"Google Trends"`,
		"object":    `{"source":"Google Trends"}`,
		"empty":     ``,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := ReadSnapshot(path, defaults)
			require.Error(t, err)
			var se *types.SnapshotError
			require.True(t, errors.As(err, &se))
			require.Equal(t, "decode", se.Op)
		})
	}
}

func TestArchiveDocShape(t *testing.T) {
	batch := Batch{RunID: "run-1", HarvestedAt: time.Unix(0, 0)}
	recs := sampleRecords()

	trend := archiveDoc(batch, recs[0])
	require.Equal(t, "14", trend["category"])
	require.Equal(t, "run-1", trend["run_id"])
	require.NotContains(t, trend, "link")

	news := archiveDoc(batch, recs[1])
	require.Equal(t, "https://news.ltn.com.tw/a?b=1&c=2", news["link"])
	require.NotContains(t, news, "category")
}
