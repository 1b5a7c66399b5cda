// Package aggregate declares the fixed set of analytical views and the
// grouping/reduction machinery shared by both execution backends.
//
// A view is declarative: group keys plus named reducers. The backends only
// differ in how they drive Partial accumulators over the dataset; the
// per-group arithmetic lives here so the two cannot drift apart.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// View names.
const (
	ViewSalesByCategory    = "sales_by_category"
	ViewSalesByDate        = "sales_by_date"
	ViewProductPerformance = "product_performance"
	ViewPaymentAnalysis    = "payment_analysis"
	ViewGiftAnalysis       = "gift_analysis"
)

// Op identifies a reducer operation.
type Op int

const (
	OpSum Op = iota
	OpCount
	OpAvg
)

// Reducer reduces one column across a group. As names the output column.
type Reducer struct {
	Op     Op
	Column string
	As     string
}

// View declares one named aggregation: group by Keys, apply Reducers.
type View struct {
	Name     string
	Keys     []string
	Reducers []Reducer

	// SortAsc forces ascending output order on the key columns. Only
	// sales_by_date requires it; backends may sort other views for
	// determinism but are not contractually bound to.
	SortAsc bool
}

// MissingColumnError reports a view whose declared grouping or reduced
// column is absent from the dataset.
type MissingColumnError struct {
	View   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("view %s: missing column %q", e.View, e.Column)
}

// Engine computes every applicable view over a normalized dataset. The two
// implementations (memory, cluster) must agree on the produced (group key,
// reduced value) pairs within floating-point tolerance.
type Engine interface {
	Aggregate(ctx context.Context, d *schema.Dataset) (map[string]*dataset.Table, error)
}

// Views returns the views applicable to d. The first three are
// unconditional; payment_analysis and gift_analysis are included iff their
// trigger column was present in the input.
func Views(d *schema.Dataset) []View {
	views := []View{
		{
			Name: ViewSalesByCategory,
			Keys: []string{schema.ColCategory},
			Reducers: []Reducer{
				{Op: OpSum, Column: schema.ColTotalPrice, As: schema.ColTotalPrice},
				{Op: OpSum, Column: schema.ColQuantity, As: schema.ColQuantity},
				{Op: OpCount, Column: schema.ColTransactionID, As: "num_transactions"},
			},
		},
		{
			Name:    ViewSalesByDate,
			Keys:    []string{schema.ColDate},
			SortAsc: true,
			Reducers: []Reducer{
				{Op: OpSum, Column: schema.ColTotalPrice, As: schema.ColTotalPrice},
				{Op: OpSum, Column: schema.ColQuantity, As: schema.ColQuantity},
				{Op: OpCount, Column: schema.ColTransactionID, As: "num_transactions"},
			},
		},
		{
			Name: ViewProductPerformance,
			Keys: []string{schema.ColCategory, schema.ColProductName},
			Reducers: []Reducer{
				{Op: OpSum, Column: schema.ColTotalPrice, As: schema.ColTotalPrice},
				{Op: OpSum, Column: schema.ColQuantity, As: schema.ColQuantity},
				{Op: OpCount, Column: schema.ColTransactionID, As: "num_transactions"},
				{Op: OpAvg, Column: schema.ColRating, As: "avg_rating"},
			},
		},
	}
	if d.Has(schema.ColPaymentMethod) {
		views = append(views, View{
			Name: ViewPaymentAnalysis,
			Keys: []string{schema.ColPaymentMethod},
			Reducers: []Reducer{
				{Op: OpSum, Column: schema.ColTotalPrice, As: schema.ColTotalPrice},
				{Op: OpCount, Column: schema.ColTransactionID, As: "num_transactions"},
			},
		})
	}
	if d.Has(schema.ColIsGift) {
		views = append(views, View{
			Name: ViewGiftAnalysis,
			Keys: []string{schema.ColCategory, schema.ColIsGift},
			Reducers: []Reducer{
				{Op: OpSum, Column: schema.ColTotalPrice, As: schema.ColTotalPrice},
				{Op: OpCount, Column: schema.ColTransactionID, As: "num_transactions"},
			},
		})
	}
	return views
}

// Validate checks that every column the view declares exists on d.
func (v View) Validate(d *schema.Dataset) error {
	for _, k := range v.Keys {
		if !d.Has(k) {
			return &MissingColumnError{View: v.Name, Column: k}
		}
	}
	for _, r := range v.Reducers {
		if !d.Has(r.Column) {
			return &MissingColumnError{View: v.Name, Column: r.Column}
		}
	}
	return nil
}

// Columns returns the view's output column order: keys first, then reducer
// output names.
func (v View) Columns() []string {
	cols := make([]string, 0, len(v.Keys)+len(v.Reducers))
	cols = append(cols, v.Keys...)
	for _, r := range v.Reducers {
		cols = append(cols, r.As)
	}
	return cols
}

// GroupKey computes the grouping key for tx under v: an opaque string used
// for map lookup and shuffle hashing, plus the typed key values in key
// order. It assumes v has been validated against the dataset.
func (v View) GroupKey(tx *schema.Transaction) (string, []any) {
	vals := make([]any, len(v.Keys))
	parts := make([]string, len(v.Keys))
	for i, k := range v.Keys {
		val, _ := tx.Field(k)
		vals[i] = val
		parts[i] = keyPart(val)
	}
	return strings.Join(parts, "\x1f"), vals
}

func keyPart(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// SortRows orders t's rows ascending by the named columns. String, int64
// and float64 cells compare by value; mixed types fall back to their string
// forms.
func SortRows(t *dataset.Table, cols []string) {
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if j := t.Col(c); j >= 0 {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(t.Rows, func(a, b int) bool {
		for _, j := range idx {
			if c := compareCell(t.Rows[a][j], t.Rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareCell(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(keyPart(a), keyPart(b))
}
