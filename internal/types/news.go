package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NewsRecord is the subset of an archived news row the scoring engine reads
// and writes. Only Popularity and ProcessingStatus are ever mutated.
type NewsRecord struct {
	ID               int64
	Title            string
	Content          string
	PubDate          time.Time
	Popularity       float64
	ProcessingStatus int
}

// ParseProcessingStatus converts a stored status value to a counter. Missing,
// negative or non-numeric values count as 0.
func ParseProcessingStatus(raw *string) int {
	if raw == nil {
		return 0
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// Diagnostic records an item that a best-effort stage skipped.
type Diagnostic struct {
	Stage    string
	Source   Source
	Category string
	Rank     int
	Attempt  int
	Keyword  string
	Err      error
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Stage)
	if d.Source != "" {
		fmt.Fprintf(&b, " source=%s", d.Source)
	}
	if d.Category != "" {
		fmt.Fprintf(&b, " category=%s", d.Category)
	}
	if d.Rank > 0 {
		fmt.Fprintf(&b, " rank=%d", d.Rank)
	}
	if d.Attempt > 0 {
		fmt.Fprintf(&b, " attempt=%d", d.Attempt)
	}
	if d.Keyword != "" {
		fmt.Fprintf(&b, " keyword=%q", d.Keyword)
	}
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	return b.String()
}
