package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"retailetl/internal/aggregate"
	"retailetl/internal/config"
	"retailetl/internal/source"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		Job:            "test_run",
		NumFiles:       3,
		RecordsPerFile: 40,
		Seed:           1,
		RawDir:         filepath.Join(root, "raw"),
		ProcessedDir:   filepath.Join(root, "processed"),
		CuratedDir:     filepath.Join(root, "curated"),
		Backend:        backend,
		Runtime:        config.RuntimeConfig{Workers: 2, Partitions: 4},
	}
}

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

func TestRunEndToEnd(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendCluster} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			if err := Run(context.Background(), cfg); err != nil {
				t.Fatalf("Run: %v", err)
			}

			out := cfg.OutputDir()
			if backend == config.BackendCluster && out == cfg.CuratedDir {
				t.Fatalf("cluster backend must not share the memory output dir")
			}

			cleaned := readCSV(t, filepath.Join(out, CleanedArtifact+".csv"))
			wantRows := cfg.NumFiles * cfg.RecordsPerFile
			if len(cleaned)-1 != wantRows {
				t.Fatalf("cleaned_data has %d rows; want %d", len(cleaned)-1, wantRows)
			}

			// The generator always emits payment_method and is_gift, so all
			// five views must be present.
			for _, name := range []string{
				aggregate.ViewSalesByCategory,
				aggregate.ViewSalesByDate,
				aggregate.ViewProductPerformance,
				aggregate.ViewPaymentAnalysis,
				aggregate.ViewGiftAnalysis,
			} {
				recs := readCSV(t, filepath.Join(out, name+".csv"))
				if len(recs) < 2 {
					t.Fatalf("view %s is empty", name)
				}
			}

			// Completeness: category groups cover every transaction.
			byCat := readCSV(t, filepath.Join(out, aggregate.ViewSalesByCategory+".csv"))
			n := 0
			for _, r := range byCat[1:] {
				c, err := strconv.Atoi(r[3])
				if err != nil {
					t.Fatalf("num_transactions %q: %v", r[3], err)
				}
				n += c
			}
			if n != wantRows {
				t.Fatalf("sales_by_category num_transactions sums to %d; want %d", n, wantRows)
			}
		})
	}
}

func TestRunSortsSalesByDate(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	recs := readCSV(t, filepath.Join(cfg.OutputDir(), aggregate.ViewSalesByDate+".csv"))
	for i := 2; i < len(recs); i++ {
		if recs[i][0] < recs[i-1][0] {
			t.Fatalf("dates out of order: %s before %s", recs[i-1][0], recs[i][0])
		}
	}
}

func TestTransformEmptyInput(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	if err := os.MkdirAll(cfg.ProcessedDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := Transform(context.Background(), cfg)
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("got %v; want StageError", err)
	}
	if se.Stage != StageSource {
		t.Fatalf("failing stage = %s; want %s", se.Stage, StageSource)
	}
	if !errors.Is(err, source.ErrEmptyInput) {
		t.Fatalf("cause = %v; want ErrEmptyInput", se.Err)
	}
}

func TestTransformReportsStageOnBadData(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Corrupt one processed file so a later run fails in normalize.
	entries, err := os.ReadDir(cfg.ProcessedDir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("no processed files: %v", err)
	}
	victim := filepath.Join(cfg.ProcessedDir, entries[0].Name())
	recs := readCSV(t, victim)
	for i, c := range recs[0] {
		if c == "price" {
			recs[1][i] = "not-a-number"
		}
	}
	f, err := os.Create(victim)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(recs); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	f.Close()

	err = Transform(context.Background(), cfg)
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("got %v; want StageError", err)
	}
	if se.Stage != StageNormalize {
		t.Fatalf("failing stage = %s; want %s", se.Stage, StageNormalize)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := readCSV(t, filepath.Join(cfg.OutputDir(), aggregate.ViewSalesByCategory+".csv"))

	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second := readCSV(t, filepath.Join(cfg.OutputDir(), aggregate.ViewSalesByCategory+".csv"))

	if len(first) != len(second) {
		t.Fatalf("repeat run changed group count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("repeat run changed cell [%d][%d]: %q vs %q", i, j, first[i][j], second[i][j])
			}
		}
	}
}
