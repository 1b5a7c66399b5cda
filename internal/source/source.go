// Package source implements the Row Source stage: it reads one or more
// homogeneous delimited files from a directory and concatenates them into a
// single raw Table.
//
// The schema is closed. Headers are matched case-sensitively against the
// schema catalog after a light cleanup pass (BOM/accent stripping, the same
// treatment the probe tooling applies to real-world headers); unknown
// columns and files that disagree on the column set are rejected rather
// than passed through.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// ErrEmptyInput is returned when the location set resolves to zero files.
var ErrEmptyInput = errors.New("no input files found")

// SchemaMismatchError reports a file whose header disagrees with the schema
// catalog or with the other files of the same run.
type SchemaMismatchError struct {
	File string
	Msg  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: %s", e.File, e.Msg)
}

// Options configures the Row Source. Zero values select the defaults.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// Pattern is the glob matched against file names in the directory.
	// When empty, "*.csv" is used.
	Pattern string

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool
}

// Source loads delimited files from a single directory.
type Source struct {
	dir string
	opt Options
}

// New returns a Source bound to dir.
func New(dir string, opt Options) *Source {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	if opt.Pattern == "" {
		opt.Pattern = "*.csv"
	}
	return &Source{dir: dir, opt: opt}
}

const utf8BOM = "\ufeff"

// Load reads every matching file and returns their rows as one Table, in
// file name order, rows in file order. Cell values are raw strings; type
// coercion is the normalizer's job.
//
// Errors:
//   - ErrEmptyInput when no file matches.
//   - *SchemaMismatchError when a header contains an unknown column, lacks
//     a required column, or differs from the first file's column set.
func (s *Source) Load(ctx context.Context) (*dataset.Table, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, s.opt.Pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", s.dir, ErrEmptyInput)
	}
	sort.Strings(files)

	var out *dataset.Table
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		t, err := s.loadFile(f)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = t
			continue
		}
		if !out.SameColumns(t) {
			return nil, &SchemaMismatchError{
				File: f,
				Msg: fmt.Sprintf("columns %v differ from first file's %v",
					t.Columns, out.Columns),
			}
		}
		// Re-align to the first file's column order before concatenating.
		idx := make([]int, len(out.Columns))
		for i, c := range out.Columns {
			idx[i] = t.Col(c)
		}
		for _, row := range t.Rows {
			aligned := make([]any, len(idx))
			for i, j := range idx {
				aligned[i] = row[j]
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out, nil
}

func (s *Source) loadFile(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = s.opt.Comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	cols := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := cleanHeaderName(h)
		if _, ok := schema.Lookup(name); !ok && !schema.IsDerived(name) {
			return nil, &SchemaMismatchError{File: path, Msg: fmt.Sprintf("unknown column %q", name)}
		}
		if _, dup := seen[name]; dup {
			return nil, &SchemaMismatchError{File: path, Msg: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = struct{}{}
		cols[i] = name
	}
	for _, c := range schema.Catalog {
		if c.Optional {
			continue
		}
		if _, ok := seen[c.Name]; !ok {
			return nil, &SchemaMismatchError{File: path, Msg: fmt.Sprintf("missing required column %q", c.Name)}
		}
	}

	t := dataset.New(cols...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			if s.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return t, nil
}

// cleanHeaderName strips a UTF-8 BOM and any accents from a header cell
// (NFD -> remove Mn -> NFC) and trims surrounding whitespace. Matching
// against the catalog stays case-sensitive; only byte-level noise that real
// exports carry is removed.
func cleanHeaderName(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)
	s = strings.TrimSpace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	clean, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return clean
}
