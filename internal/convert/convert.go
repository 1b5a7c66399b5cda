// Package convert is the format adapter between raw JSON exports and the
// delimited files the Row Source reads. Nested objects are flattened with
// underscore-joined keys (shipping_address.city -> shipping_address_city),
// lists are joined with commas, and the unified header is sorted.
//
// Numbers are decoded with json.Number so values pass through to CSV
// byte-for-byte (899.99 stays "899.99", never 899.9899999...).
package convert

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Dir converts every *.json file in inDir into a same-named *.csv in
// outDir. Files holding an empty array are skipped with a warning, as is a
// directory with no JSON files at all; conversion itself is not the stage
// that enforces non-empty input.
func Dir(inDir, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("convert: mkdir %s: %w", outDir, err)
	}
	files, err := filepath.Glob(filepath.Join(inDir, "*.json"))
	if err != nil {
		return fmt.Errorf("convert: glob %s: %w", inDir, err)
	}
	if len(files) == 0 {
		log.Printf("convert: no JSON files found in %s", inDir)
		return nil
	}
	sort.Strings(files)
	log.Printf("convert: found %d JSON files in %s", len(files), inDir)
	for _, f := range files {
		base := filepath.Base(f)
		out := filepath.Join(outDir, strings.TrimSuffix(base, ".json")+".csv")
		if err := File(f, out); err != nil {
			return err
		}
	}
	return nil
}

// File converts one JSON array of objects into one CSV file.
func File(jsonPath, csvPath string) error {
	in, err := os.Open(jsonPath)
	if err != nil {
		return fmt.Errorf("convert: open %s: %w", jsonPath, err)
	}
	defer in.Close()

	recs, err := decodeObjects(in)
	if err != nil {
		return fmt.Errorf("convert: %s: %w", jsonPath, err)
	}
	if len(recs) == 0 {
		log.Printf("convert: %s contains no records, skipping", jsonPath)
		return nil
	}

	flat := make([]map[string]string, len(recs))
	keys := map[string]struct{}{}
	for i, r := range recs {
		flat[i] = map[string]string{}
		flatten(r, "", flat[i])
		for k := range flat[i] {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("convert: create %s: %w", csvPath, err)
	}
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		out.Close()
		return fmt.Errorf("convert: write %s: %w", csvPath, err)
	}
	row := make([]string, len(header))
	for _, r := range flat {
		for i, k := range header {
			row[i] = r[k] // absent keys stay empty
		}
		if err := w.Write(row); err != nil {
			out.Close()
			return fmt.Errorf("convert: write %s: %w", csvPath, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return fmt.Errorf("convert: flush %s: %w", csvPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("convert: close %s: %w", csvPath, err)
	}
	log.Printf("convert: %s -> %s rows=%d", jsonPath, csvPath, len(flat))
	return nil
}

// decodeObjects reads a top-level JSON array of objects.
func decodeObjects(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	arr, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, want array of objects", root)
	}
	out := make([]map[string]any, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not an object", i, elem)
		}
		out = append(out, obj)
	}
	return out, nil
}

// flatten walks obj depth-first, joining nested keys with '_' and
// collapsing arrays into comma-joined strings.
func flatten(obj map[string]any, prefix string, into map[string]string) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch x := v.(type) {
		case map[string]any:
			flatten(x, key, into)
		case []any:
			parts := make([]string, len(x))
			for i, e := range x {
				parts[i] = scalarString(e)
			}
			into[key] = strings.Join(parts, ",")
		default:
			into[key] = scalarString(v)
		}
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
