// Package transform implements the Normalizer stage: raw string rows become
// typed transactions with calendar and derived columns attached.
//
// Normalize is a pure function of its input. It is also idempotent: feeding
// an already-normalized table (as rendered by Dataset.Table) back through
// produces the same values exactly, because every derived column is
// recomputed from the same coerced inputs.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"retailetl/internal/dataset"
	"retailetl/internal/schema"
)

// CoercionError reports a scalar that could not be coerced to its declared
// column type. It names the column and the offending value.
type CoercionError struct {
	Column string
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coerce column %q: value %v: %v", e.Column, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Normalizer coerces and enriches raw tables.
type Normalizer struct {
	// Layout is the timestamp parse layout. When empty,
	// schema.TimestampLayout is used.
	Layout string
}

// Normalize turns a raw table into a typed Dataset:
//
//  1. timestamp is parsed; date, year, month, day and day_of_week are
//     derived. day_of_week is Monday=0 through Sunday=6.
//  2. price -> float64, quantity -> int64, rating -> float64.
//  3. total_price = price * quantity.
//  4. a missing rating becomes 0.
//  5. is_gift, when present, becomes 0 or 1.
//
// Derived columns already present on the input are ignored and recomputed.
// The input table is not modified.
func (n Normalizer) Normalize(t *dataset.Table) (*schema.Dataset, error) {
	layout := n.Layout
	if layout == "" {
		layout = schema.TimestampLayout
	}

	var base []string
	for _, c := range t.Columns {
		if !schema.IsDerived(c) {
			base = append(base, c)
		}
	}

	d := &schema.Dataset{Cols: base, Tx: make([]schema.Transaction, 0, t.NumRows())}
	hasGift := t.HasColumn(schema.ColIsGift)
	hasPayment := t.HasColumn(schema.ColPaymentMethod)

	for i := range t.Rows {
		var tx schema.Transaction
		var err error

		tx.TransactionID = asString(t.Value(i, schema.ColTransactionID))
		tx.CustomerID = asString(t.Value(i, schema.ColCustomerID))
		tx.ProductID = asString(t.Value(i, schema.ColProductID))
		tx.ProductName = asString(t.Value(i, schema.ColProductName))
		tx.Category = asString(t.Value(i, schema.ColCategory))
		tx.ShipStreet = asString(t.Value(i, schema.ColShipStreet))
		tx.ShipCity = asString(t.Value(i, schema.ColShipCity))
		tx.ShipState = asString(t.Value(i, schema.ColShipState))
		tx.ShipZip = asString(t.Value(i, schema.ColShipZip))
		tx.ShipCountry = asString(t.Value(i, schema.ColShipCountry))
		tx.Tags = asString(t.Value(i, schema.ColTags))
		if hasPayment {
			tx.PaymentMethod = asString(t.Value(i, schema.ColPaymentMethod))
		}

		if tx.Price, err = coerceFloat(t.Value(i, schema.ColPrice)); err != nil {
			return nil, &CoercionError{Column: schema.ColPrice, Value: t.Value(i, schema.ColPrice), Err: err}
		}
		if tx.Quantity, err = coerceInt(t.Value(i, schema.ColQuantity)); err != nil {
			return nil, &CoercionError{Column: schema.ColQuantity, Value: t.Value(i, schema.ColQuantity), Err: err}
		}

		// A missing rating is a valid terminal state, not an error.
		if rv := t.Value(i, schema.ColRating); isMissing(rv) {
			tx.Rating = 0
		} else if tx.Rating, err = coerceFloat(rv); err != nil {
			return nil, &CoercionError{Column: schema.ColRating, Value: rv, Err: err}
		}

		if hasGift {
			if tx.IsGift, err = coerceBool01(t.Value(i, schema.ColIsGift)); err != nil {
				return nil, &CoercionError{Column: schema.ColIsGift, Value: t.Value(i, schema.ColIsGift), Err: err}
			}
		}

		tsRaw := asString(t.Value(i, schema.ColTimestamp))
		ts, err := time.Parse(layout, tsRaw)
		if err != nil {
			return nil, &CoercionError{Column: schema.ColTimestamp, Value: tsRaw, Err: err}
		}
		tx.Timestamp = ts
		tx.Date = ts.Format(schema.DateLayout)
		tx.Year = int64(ts.Year())
		tx.Month = int64(ts.Month())
		tx.Day = int64(ts.Day())
		tx.DayOfWeek = int64((int(ts.Weekday()) + 6) % 7) // Monday=0

		tx.TotalPrice = tx.Price * float64(tx.Quantity)

		d.Tx = append(d.Tx, tx)
	}
	return d, nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("cannot coerce %T to float", v)
}

func coerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("cannot coerce %T to int", v)
}

// coerceBool01 accepts bools, 0/1 numerics, and strconv-style boolean
// strings ("true", "1", ...) and returns 0 or 1.
func coerceBool01(v any) (int64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int64:
		if x == 0 || x == 1 {
			return x, nil
		}
		return 0, fmt.Errorf("%d is not 0 or 1", x)
	case float64:
		if x == 0 || x == 1 {
			return int64(x), nil
		}
		return 0, fmt.Errorf("%v is not 0 or 1", x)
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot coerce %T to bool", v)
}
