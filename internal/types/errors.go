package types

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrSelectorTimeout = errors.New("selector wait timed out")
	ErrNoRows          = errors.New("no rows matched")
	ErrEmptyKeyword    = errors.New("empty keyword")
	ErrSnapshotMissing = errors.New("snapshot file not found")
	ErrBrowserLaunch   = errors.New("browser launch failed")
	ErrBrowserSession  = errors.New("browser session lost")
	ErrUnknownRole     = errors.New("no selector configured for role")
)

// FetchError wraps page-load failures. Timeout distinguishes FetchTimeout
// from a generic FetchError.
type FetchError struct {
	URL     string
	Op      string
	Err     error
	Timeout bool
}

func (e *FetchError) Error() string {
	kind := "fetch error"
	if e.Timeout {
		kind = "fetch timeout"
	}
	if e.Op != "" {
		return fmt.Sprintf("%s for %s (%s): %v", kind, e.URL, e.Op, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// OpNewPage is the FetchError op for creating a page in the browser. Failing
// it means the browser itself is gone, so it matches ErrBrowserSession.
const OpNewPage = "new page"

// Is reports a page-creation failure as ErrBrowserSession.
func (e *FetchError) Is(target error) bool {
	return target == ErrBrowserSession && e.Op == OpNewPage
}

// NewFetchError classifies err as a timeout when it carries a deadline.
func NewFetchError(url, op string, err error) *FetchError {
	return &FetchError{
		URL:     url,
		Op:      op,
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

// IsTimeout reports whether err is a FetchTimeout or a selector timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrSelectorTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var fe *FetchError
	return errors.As(err, &fe) && fe.Timeout
}

// ExtractionError wraps a failure to read a single row.
type ExtractionError struct {
	Source   Source
	Category string
	Rank     int
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("extraction error for %s/%s row %d: %v", e.Source, e.Category, e.Rank, e.Err)
	}
	return fmt.Sprintf("extraction error for %s row %d: %v", e.Source, e.Rank, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SnapshotError wraps failures reading or writing the keyword snapshot.
type SnapshotError struct {
	Path string
	Op   string
	Err  error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// DatastoreError wraps failures during a scoring transaction.
type DatastoreError struct {
	Op  string
	Err error
}

func (e *DatastoreError) Error() string {
	return fmt.Sprintf("datastore error (%s): %v", e.Op, e.Err)
}

func (e *DatastoreError) Unwrap() error { return e.Err }
