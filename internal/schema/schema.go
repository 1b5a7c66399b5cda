// Package schema fixes the logical shape of a retail transaction row.
//
// The input CSV schema is closed: every column the pipeline accepts is
// declared here, and the Row Source rejects files whose header strays from
// this catalog. Optional columns (payment_method, is_gift) may be absent
// from an input as a whole, but never per-row.
package schema

import "time"

// TimestampLayout is the wire format of the timestamp column, end to end:
// the generator writes it, the normalizer parses it, and cleaned output
// re-emits it unchanged.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the format of the derived date column.
const DateLayout = "2006-01-02"

// Kind classifies a column's coerced Go type.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindBool
)

// Column describes one declared input column.
type Column struct {
	Name     string
	Kind     Kind
	Optional bool // the column may be missing from an input entirely
}

// Input column names.
const (
	ColCategory      = "category"
	ColCustomerID    = "customer_id"
	ColIsGift        = "is_gift"
	ColPaymentMethod = "payment_method"
	ColPrice         = "price"
	ColProductID     = "product_id"
	ColProductName   = "product_name"
	ColQuantity      = "quantity"
	ColRating        = "rating"
	ColShipCity      = "shipping_address_city"
	ColShipCountry   = "shipping_address_country"
	ColShipState     = "shipping_address_state"
	ColShipStreet    = "shipping_address_street"
	ColShipZip       = "shipping_address_zip_code"
	ColTags          = "tags"
	ColTimestamp     = "timestamp"
	ColTransactionID = "transaction_id"
)

// Derived column names added by the normalizer.
const (
	ColDate       = "date"
	ColYear       = "year"
	ColMonth      = "month"
	ColDay        = "day"
	ColDayOfWeek  = "day_of_week"
	ColTotalPrice = "total_price"
)

// Catalog enumerates every accepted input column, in the header order the
// upstream converter emits (sorted by name).
var Catalog = []Column{
	{Name: ColCategory, Kind: KindString},
	{Name: ColCustomerID, Kind: KindString},
	{Name: ColIsGift, Kind: KindBool, Optional: true},
	{Name: ColPaymentMethod, Kind: KindString, Optional: true},
	{Name: ColPrice, Kind: KindFloat},
	{Name: ColProductID, Kind: KindString},
	{Name: ColProductName, Kind: KindString},
	{Name: ColQuantity, Kind: KindInt},
	{Name: ColRating, Kind: KindFloat},
	{Name: ColShipCity, Kind: KindString},
	{Name: ColShipCountry, Kind: KindString},
	{Name: ColShipState, Kind: KindString},
	{Name: ColShipStreet, Kind: KindString},
	{Name: ColShipZip, Kind: KindString},
	{Name: ColTags, Kind: KindString},
	{Name: ColTimestamp, Kind: KindString},
	{Name: ColTransactionID, Kind: KindString},
}

// Derived lists the normalizer's output columns in emission order.
var Derived = []string{ColDate, ColYear, ColMonth, ColDay, ColDayOfWeek, ColTotalPrice}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Column, bool) {
	for _, c := range Catalog {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsDerived reports whether name is a normalizer-derived column. Derived
// columns are tolerated on input so that re-normalizing already-normalized
// data is a no-op rather than a schema violation.
func IsDerived(name string) bool {
	for _, d := range Derived {
		if d == name {
			return true
		}
	}
	return false
}

// Transaction is the typed, normalized form of one input row. Optional
// columns keep their zero value when the column is absent from the input;
// the owning Dataset records which columns were actually present.
type Transaction struct {
	TransactionID string
	CustomerID    string
	ProductID     string
	ProductName   string
	Category      string
	Price         float64
	Quantity      int64
	PaymentMethod string
	ShipStreet    string
	ShipCity      string
	ShipState     string
	ShipZip       string
	ShipCountry   string
	Tags          string
	IsGift        int64   // coerced 0/1
	Rating        float64 // 0 when the source value was missing
	Timestamp     time.Time

	// Derived by the normalizer.
	Date       string // YYYY-MM-DD
	Year       int64
	Month      int64
	Day        int64
	DayOfWeek  int64 // Monday=0 .. Sunday=6, both backends
	TotalPrice float64
}

// Field returns the value of the named input or derived column. The second
// result is false for names outside the schema.
func (t *Transaction) Field(name string) (any, bool) {
	switch name {
	case ColTransactionID:
		return t.TransactionID, true
	case ColCustomerID:
		return t.CustomerID, true
	case ColProductID:
		return t.ProductID, true
	case ColProductName:
		return t.ProductName, true
	case ColCategory:
		return t.Category, true
	case ColPrice:
		return t.Price, true
	case ColQuantity:
		return t.Quantity, true
	case ColPaymentMethod:
		return t.PaymentMethod, true
	case ColShipStreet:
		return t.ShipStreet, true
	case ColShipCity:
		return t.ShipCity, true
	case ColShipState:
		return t.ShipState, true
	case ColShipZip:
		return t.ShipZip, true
	case ColShipCountry:
		return t.ShipCountry, true
	case ColTags:
		return t.Tags, true
	case ColIsGift:
		return t.IsGift, true
	case ColRating:
		return t.Rating, true
	case ColTimestamp:
		return t.Timestamp.Format(TimestampLayout), true
	case ColDate:
		return t.Date, true
	case ColYear:
		return t.Year, true
	case ColMonth:
		return t.Month, true
	case ColDay:
		return t.Day, true
	case ColDayOfWeek:
		return t.DayOfWeek, true
	case ColTotalPrice:
		return t.TotalPrice, true
	}
	return nil, false
}
