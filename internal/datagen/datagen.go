// Package datagen produces the synthetic transaction fixtures the pipeline
// runs on: N JSON files of M records each, shaped like a retail order
// export (nested shipping address, optional rating, tag list).
package datagen

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// Address is the nested shipping address block.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Record is one generated transaction. Rating is a pointer because absence
// is part of the fixture contract (~30% of records carry no rating).
type Record struct {
	TransactionID   string   `json:"transaction_id"`
	CustomerID      string   `json:"customer_id"`
	Timestamp       string   `json:"timestamp"`
	ProductID       string   `json:"product_id"`
	ProductName     string   `json:"product_name"`
	Category        string   `json:"category"`
	Price           float64  `json:"price"`
	Quantity        int      `json:"quantity"`
	PaymentMethod   string   `json:"payment_method"`
	ShippingAddress Address  `json:"shipping_address"`
	IsGift          bool     `json:"is_gift"`
	Rating          *int     `json:"rating"`
	Tags            []string `json:"tags"`
}

// Options configures a generation run.
type Options struct {
	NumFiles       int
	RecordsPerFile int

	// Seed makes the run reproducible. Zero seeds from the current time.
	Seed int64

	// Now anchors the one-year timestamp window. Zero means time.Now().
	Now time.Time
}

var categories = []string{
	"Electronics", "Clothing", "Home & Kitchen", "Books", "Sports",
	"Beauty", "Toys", "Automotive", "Health", "Grocery",
}

var productNames = map[string][]string{
	"Electronics":    {"Smartphone", "Laptop", "Headphones", "Tablet", "Smart Watch", "Camera", "TV"},
	"Clothing":       {"T-shirt", "Jeans", "Dress", "Jacket", "Shoes", "Hat", "Socks"},
	"Home & Kitchen": {"Blender", "Coffee Maker", "Toaster", "Microwave", "Knife Set", "Plates"},
	"Books":          {"Fiction Novel", "Biography", "Cookbook", "Self-Help", "Science Fiction", "History"},
	"Sports":         {"Basketball", "Tennis Racket", "Yoga Mat", "Dumbbells", "Running Shoes", "Bicycle"},
	"Beauty":         {"Shampoo", "Lipstick", "Face Cream", "Perfume", "Hair Dryer", "Nail Polish"},
	"Toys":           {"Action Figure", "Board Game", "Puzzle", "Stuffed Animal", "Building Blocks", "Doll"},
	"Automotive":     {"Car Wax", "Floor Mats", "Air Freshener", "Tire Gauge", "Jump Starter"},
	"Health":         {"Vitamins", "First Aid Kit", "Thermometer", "Pain Reliever", "Bandages"},
	"Grocery":        {"Cereal", "Coffee", "Pasta", "Snacks", "Canned Goods", "Frozen Meals"},
}

var paymentMethods = []string{
	"Credit Card", "Debit Card", "PayPal", "Cash", "Bank Transfer", "Gift Card",
}

var tagPool = []string{"sale", "new", "trending", "limited", "exclusive"}

// Generate writes opt.NumFiles JSON files named transactions_NNN.json into
// outDir, each holding opt.RecordsPerFile records as a top-level array.
func Generate(opt Options, outDir string) error {
	if opt.NumFiles <= 0 || opt.RecordsPerFile <= 0 {
		return fmt.Errorf("datagen: num_files and records_per_file must be > 0")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("datagen: mkdir %s: %w", outDir, err)
	}
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	log.Printf("datagen: generating files=%d records_per_file=%d seed=%d", opt.NumFiles, opt.RecordsPerFile, seed)
	for n := 1; n <= opt.NumFiles; n++ {
		recs := make([]Record, opt.RecordsPerFile)
		for i := range recs {
			recs[i] = newRecord(rng, now)
		}
		name := filepath.Join(outDir, fmt.Sprintf("transactions_%03d.json", n))
		if err := writeJSON(name, recs); err != nil {
			return err
		}
		log.Printf("datagen: wrote %s records=%d", name, len(recs))
	}
	return nil
}

func newRecord(rng *rand.Rand, now time.Time) Record {
	category := categories[rng.Intn(len(categories))]
	names := productNames[category]

	ts := now.Add(-time.Duration(rng.Intn(365*24*60)) * time.Minute)
	addr := faker.GetRealAddress()

	r := Record{
		TransactionID: uuid.NewString(),
		CustomerID:    uuid.NewString()[:8],
		Timestamp:     ts.Format("2006-01-02 15:04:05"),
		ProductID:     uuid.NewString()[:8],
		ProductName:   names[rng.Intn(len(names))],
		Category:      category,
		Price:         float64(rng.Intn(99000)+1000) / 100, // 10.00..1000.00
		Quantity:      rng.Intn(10) + 1,
		PaymentMethod: paymentMethods[rng.Intn(len(paymentMethods))],
		ShippingAddress: Address{
			Street:  addr.Address,
			City:    addr.City,
			State:   addr.State,
			ZipCode: addr.PostalCode,
			Country: "USA",
		},
		IsGift: rng.Intn(2) == 1,
	}
	if rng.Float64() > 0.3 {
		v := rng.Intn(5) + 1
		r.Rating = &v
	}
	k := rng.Intn(4) // 0..3 tags
	perm := rng.Perm(len(tagPool))[:k]
	for _, j := range perm {
		r.Tags = append(r.Tags, tagPool[j])
	}
	return r
}

func writeJSON(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("datagen: create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		f.Close()
		return fmt.Errorf("datagen: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("datagen: close %s: %w", path, err)
	}
	return nil
}
