// Package sink persists tables as header-plus-rows delimited artifacts.
//
// Writes are atomic from a reader's point of view: content goes to a
// temporary file in the target directory and is renamed over the final
// path only after a successful flush, so a concurrent reader observes
// either the previous artifact or the complete new one, never a torn
// write.
package sink

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"retailetl/internal/dataset"
)

// Sink writes artifacts into a single output directory.
type Sink struct {
	dir   string
	comma rune
}

// New returns a Sink writing into dir. The directory is created on first
// use. A zero comma means ','.
func New(dir string, comma rune) *Sink {
	if comma == 0 {
		comma = ','
	}
	return &Sink{dir: dir, comma: comma}
}

// Persist writes t as <name>.csv in the sink directory, overwriting any
// previous artifact of that name, and returns the final path. IO failures
// are returned wrapped with the path; nothing is retried.
func (s *Sink) Persist(name string, t *dataset.Table) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("sink: mkdir %s: %w", s.dir, err)
	}
	target := filepath.Join(s.dir, name+".csv")

	start := time.Now()
	tmp, err := os.CreateTemp(s.dir, name+".csv.tmp-*")
	if err != nil {
		return "", fmt.Errorf("sink: create temp for %s: %w", target, err)
	}
	defer func() {
		// No-ops once the rename succeeded.
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	w.Comma = s.comma
	if err := w.Write(t.Columns); err != nil {
		return "", fmt.Errorf("sink: write header %s: %w", target, err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("sink: write row %s: %w", target, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("sink: flush %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("sink: close %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("sink: rename %s: %w", target, err)
	}
	log.Printf("sink: wrote %s rows=%d in %s", target, t.NumRows(), time.Since(start).Truncate(time.Millisecond))
	return target, nil
}

// formatCell renders a scalar for delimited output. Floats use the
// shortest representation that round-trips, so re-reading cleaned output
// reproduces the same values exactly.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
