package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

// SnapshotFile writes trend records as a single JSON array.
type SnapshotFile struct {
	path   string
	logger *slog.Logger
}

// NewSnapshotFile creates a snapshot writer for path.
func NewSnapshotFile(path string, logger *slog.Logger) *SnapshotFile {
	return &SnapshotFile{
		path:   path,
		logger: logger.With("component", "snapshot_file"),
	}
}

func (s *SnapshotFile) Name() string { return "json" }

func (s *SnapshotFile) Store(_ context.Context, batch Batch) error {
	return s.Write(batch.Records)
}

// Write replaces the snapshot with records. The file is written to a temp
// file in the same directory and renamed into place, so a reader never sees
// a half-written array. Non-ASCII text and URLs are written unescaped.
func (s *SnapshotFile) Write(records []types.TrendRecord) error {
	if records == nil {
		records = []types.TrendRecord{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &types.SnapshotError{Path: s.path, Op: "mkdir", Err: err}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return &types.SnapshotError{Path: s.path, Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &types.SnapshotError{Path: s.path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return &types.SnapshotError{Path: s.path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &types.SnapshotError{Path: s.path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &types.SnapshotError{Path: s.path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &types.SnapshotError{Path: s.path, Op: "rename", Err: err}
	}

	s.logger.Info("snapshot written", "path", s.path, "records", len(records))
	return nil
}

func (s *SnapshotFile) Close() error { return nil }

// SnapshotDefaults fills fields older or hand-written snapshots may omit.
type SnapshotDefaults struct {
	Category string
	Rank     int
}

// ReadSnapshot loads a snapshot. A missing file wraps types.ErrSnapshotMissing;
// anything other than a JSON array of objects is rejected as a whole.
func ReadSnapshot(path string, defaults SnapshotDefaults) ([]types.TrendRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", types.ErrSnapshotMissing, err)
		}
		return nil, &types.SnapshotError{Path: path, Op: "read", Err: err}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &types.SnapshotError{Path: path, Op: "decode", Err: errors.New("snapshot is not a JSON array")}
	}

	var records []types.TrendRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &types.SnapshotError{Path: path, Op: "decode", Err: err}
	}

	for i := range records {
		if records[i].Category == "" {
			records[i].Category = defaults.Category
		}
		if records[i].Rank <= 0 {
			records[i].Rank = defaults.Rank
		}
	}
	return records, nil
}
