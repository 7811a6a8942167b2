// Package loader reads the statistics files the service and the CLIs work
// from. Malformed rows are skipped and reported in Stats; a missing or
// unreadable file fails the whole call.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxWarnings caps how many row problems Stats keeps.
const maxWarnings = 20

// Stats describes one load.
type Stats struct {
	Source   string
	Rows     int
	Skipped  int
	Columns  []string
	Warnings []string
}

func (s *Stats) skip(line int, format string, args ...interface{}) {
	s.Skipped++
	if len(s.Warnings) < maxWarnings {
		s.Warnings = append(s.Warnings, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
	}
}

// ColumnsError lists required columns absent from a file header.
type ColumnsError struct {
	Missing []string
}

func (e *ColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Missing, ", ")
}

// IsColumnsError reports whether err is a *ColumnsError.
func IsColumnsError(err error) bool {
	var ce *ColumnsError
	return errors.As(err, &ce)
}

type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		cols[i] = c
		if _, dup := h[c]; !dup {
			h[c] = i
		}
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

func (h header) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !h.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ColumnsError{Missing: missing}
	}
	return nil
}

// get returns the trimmed cell for col, "" when the column or cell is absent.
func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	return cr
}

// eachRow reads the header, checks required columns and calls fn for every
// data row with its 1-based line number. A parse error on a single row is
// counted as skipped.
func eachRow(r io.Reader, stats *Stats, required []string, fn func(h header, rec []string, line int)) error {
	cr := newReader(r)
	cols, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	h := newHeader(cols)
	stats.Columns = cols
	if err := h.require(required...); err != nil {
		return err
	}

	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.skip(line, "%v", pe.Err)
				continue
			}
			return fmt.Errorf("read row %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		fn(h, rec, line)
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// openFile opens path for one of the Load* helpers.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
