package schema

import "retailetl/internal/dataset"

// Dataset is a normalized collection of transactions plus the set of input
// columns that were actually present in the source. Column presence drives
// the conditional aggregation views (payment_analysis, gift_analysis).
type Dataset struct {
	// Cols are the input columns of the source, in source order, excluding
	// derived columns.
	Cols []string

	Tx []Transaction
}

// Has reports whether name was a column of the source input or is derived.
func (d *Dataset) Has(name string) bool {
	if IsDerived(name) {
		return true
	}
	for _, c := range d.Cols {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of transactions.
func (d *Dataset) Len() int { return len(d.Tx) }

// Table renders the dataset back into tabular form: the source columns in
// their original order followed by the derived columns. This is the shape
// persisted as cleaned_data and the shape re-accepted by the normalizer.
func (d *Dataset) Table() *dataset.Table {
	cols := make([]string, 0, len(d.Cols)+len(Derived))
	cols = append(cols, d.Cols...)
	cols = append(cols, Derived...)

	t := dataset.New(cols...)
	for i := range d.Tx {
		row := make([]any, len(cols))
		for j, c := range cols {
			v, _ := d.Tx[i].Field(c)
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
