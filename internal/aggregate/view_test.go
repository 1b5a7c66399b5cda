package aggregate

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

var baseCols = []string{
	"category", "customer_id", "price", "product_id", "product_name",
	"quantity", "rating", "tags", "timestamp", "transaction_id",
}

func tx(id, category, product, date string, price float64, qty int64, rating float64) schema.Transaction {
	return schema.Transaction{
		TransactionID: id,
		Category:      category,
		ProductName:   product,
		Date:          date,
		Price:         price,
		Quantity:      qty,
		Rating:        rating,
		TotalPrice:    price * float64(qty),
	}
}

func TestViewsConditional(t *testing.T) {
	plain := &schema.Dataset{Cols: baseCols}
	names := func(vs []View) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name
		}
		return out
	}

	got := names(Views(plain))
	want := []string{ViewSalesByCategory, ViewSalesByDate, ViewProductPerformance}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("views = %v; want %v", got, want)
	}

	full := &schema.Dataset{Cols: append(append([]string{}, baseCols...), "payment_method", "is_gift")}
	got = names(Views(full))
	want = append(want, ViewPaymentAnalysis, ViewGiftAnalysis)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("views = %v; want %v", got, want)
	}
}

func TestValidateMissingColumn(t *testing.T) {
	noRating := &schema.Dataset{Cols: []string{"category", "product_name", "quantity", "timestamp", "transaction_id", "price"}}
	var v View
	for _, cand := range Views(noRating) {
		if cand.Name == ViewProductPerformance {
			v = cand
		}
	}

	err := v.Validate(noRating)
	var mc *MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("got %v; want MissingColumnError", err)
	}
	if mc.View != ViewProductPerformance || mc.Column != "rating" {
		t.Fatalf("error = %+v; want view %s column rating", mc, ViewProductPerformance)
	}
}

func TestGroupKeyComposite(t *testing.T) {
	v := View{Name: "x", Keys: []string{schema.ColCategory, schema.ColProductName}}
	a := tx("t1", "Books", "Atlas", "2024-01-01", 10, 1, 5)
	b := tx("t2", "Books", "Cookbook", "2024-01-01", 10, 1, 5)

	ka, vals := v.GroupKey(&a)
	kb, _ := v.GroupKey(&b)
	if ka == kb {
		t.Fatalf("distinct products hashed to the same key %q", ka)
	}
	if !reflect.DeepEqual(vals, []any{"Books", "Atlas"}) {
		t.Fatalf("key values = %v", vals)
	}
}

func TestPartialReduces(t *testing.T) {
	var v View
	for _, cand := range Views(&schema.Dataset{Cols: baseCols}) {
		if cand.Name == ViewProductPerformance {
			v = cand
		}
	}

	p := NewPartial(v)
	a := tx("a", "Books", "Atlas", "2024-01-01", 10.0, 1, 4)
	b := tx("b", "Books", "Atlas", "2024-01-02", 20.0, 2, 5)
	p.Add(&a)
	p.Add(&b)

	out := p.Table()
	if out.NumRows() != 1 {
		t.Fatalf("got %d groups; want 1", out.NumRows())
	}
	row := out.Rows[0]
	// keys, then total_price, quantity, num_transactions, avg_rating.
	want := []any{"Books", "Atlas", 50.0, int64(3), int64(2), 4.5}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("row = %v; want %v", row, want)
	}
}

func TestPartialKeepsIntegerSums(t *testing.T) {
	v := View{
		Name: "x",
		Keys: []string{schema.ColCategory},
		Reducers: []Reducer{
			{Op: OpSum, Column: schema.ColQuantity, As: "quantity"},
			{Op: OpSum, Column: schema.ColTotalPrice, As: "total_price"},
		},
	}
	p := NewPartial(v)
	a := tx("a", "Books", "Atlas", "2024-01-01", 9.99, 3, 4)
	p.Add(&a)

	row := p.Table().Rows[0]
	if _, ok := row[1].(int64); !ok {
		t.Fatalf("quantity sum is %T; want int64", row[1])
	}
	if _, ok := row[2].(float64); !ok {
		t.Fatalf("total_price sum is %T; want float64", row[2])
	}
}

func TestPartialMergeMatchesSinglePass(t *testing.T) {
	var txs []schema.Transaction
	for i := 0; i < 40; i++ {
		cat := []string{"Books", "Toys", "Home"}[i%3]
		txs = append(txs, tx(fmt.Sprintf("t%d", i), cat, "p", "2024-01-01",
			float64(i)+0.5, int64(i%5+1), float64(i%5)+1))
	}
	var v View
	for _, cand := range Views(&schema.Dataset{Cols: baseCols}) {
		if cand.Name == ViewSalesByCategory {
			v = cand
		}
	}

	whole := NewPartial(v)
	for i := range txs {
		whole.Add(&txs[i])
	}

	left, right := NewPartial(v), NewPartial(v)
	for i := range txs[:20] {
		left.Add(&txs[i])
	}
	for i := range txs[20:] {
		right.Add(&txs[20+i])
	}
	left.Merge(right)

	if !reflect.DeepEqual(whole.Table(), left.Table()) {
		t.Fatalf("merged partials diverge from single pass:\n%v\n%v",
			whole.Table().Rows, left.Table().Rows)
	}
}

func TestSortRows(t *testing.T) {
	out := dataset.New("date", "n")
	out.Rows = [][]any{
		{"2024-03-01", int64(1)},
		{"2024-01-15", int64(2)},
		{"2024-02-20", int64(3)},
	}
	SortRows(out, []string{"date"})

	var dates []string
	for _, r := range out.Rows {
		dates = append(dates, r[0].(string))
	}
	want := []string{"2024-01-15", "2024-02-20", "2024-03-01"}
	if !reflect.DeepEqual(dates, want) {
		t.Fatalf("dates = %v; want %v", dates, want)
	}
}
