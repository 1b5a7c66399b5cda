package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"retailetl/internal/dataset"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func sampleTable() *dataset.Table {
	tab := dataset.New("category", "total_price", "quantity", "num_transactions")
	tab.Rows = [][]any{
		{"Books", 30.0, int64(3), int64(2)},
		{"Toys", 12.5, int64(1), int64(1)},
	}
	return tab
}

func TestPersistWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	path, err := New(dir, 0).Persist("sales_by_category", sampleTable())
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if path != filepath.Join(dir, "sales_by_category.csv") {
		t.Fatalf("path = %s", path)
	}

	recs := readCSV(t, path)
	want := [][]string{
		{"category", "total_price", "quantity", "num_transactions"},
		{"Books", "30", "3", "2"},
		{"Toys", "12.5", "1", "1"},
	}
	if !reflect.DeepEqual(recs, want) {
		t.Fatalf("content = %v; want %v", recs, want)
	}
}

func TestPersistCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "curated", "nested")
	if _, err := New(dir, 0).Persist("v", sampleTable()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "v.csv")); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestPersistOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 0)
	if _, err := s.Persist("v", sampleTable()); err != nil {
		t.Fatalf("first Persist: %v", err)
	}

	small := dataset.New("category")
	small.Rows = [][]any{{"Home"}}
	path, err := s.Persist("v", small)
	if err != nil {
		t.Fatalf("second Persist: %v", err)
	}
	recs := readCSV(t, path)
	if len(recs) != 2 || recs[1][0] != "Home" {
		t.Fatalf("overwrite left stale content: %v", recs)
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, 0).Persist("v", sampleTable()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestPersistCustomDelimiter(t *testing.T) {
	dir := t.TempDir()
	path, err := New(dir, '|').Persist("v", sampleTable())
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(raw), "category|total_price|quantity|num_transactions") {
		t.Fatalf("header = %q", strings.SplitN(string(raw), "\n", 2)[0])
	}
}

func TestFormatCellRoundTripsFloats(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{899.99, "899.99"},
		{30.0, "30"},
		{0.1, "0.1"},
		{int64(7), "7"},
		{true, "true"},
		{nil, ""},
		{"Books", "Books"},
	} {
		if got := formatCell(tc.in); got != tc.want {
			t.Fatalf("formatCell(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestPersistEmptyTable(t *testing.T) {
	dir := t.TempDir()
	path, err := New(dir, 0).Persist("v", dataset.New("a", "b"))
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	recs := readCSV(t, path)
	if len(recs) != 1 || !reflect.DeepEqual(recs[0], []string{"a", "b"}) {
		t.Fatalf("empty table output = %v", recs)
	}
}
