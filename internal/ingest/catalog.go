// Package ingest turns a product catalog export into vector index documents.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/shopagent/internal/vectordb"
)

const (
	// DefaultMaxRecords caps how many catalog rows are read by default.
	DefaultMaxRecords = 200

	minTitleLen   = 5
	minContentLen = 20
)

// Columns recognised in the catalog export. Only title is required.
const (
	ColTitle         = "title"
	ColPromotion     = "product_promotion"
	ColSpecs         = "product_specs"
	ColCurrentPrice  = "current_price"
	ColOriginalPrice = "original_price"
	ColColors        = "color_options"
	ColBrand         = "brand"
	ColCategory      = "category"
)

// ErrNoTitleColumn is returned when the header lacks a title column.
var ErrNoTitleColumn = errors.New("catalog has no title column")

// Product is one catalog row. Empty fields are treated as missing.
type Product struct {
	Title         string
	Promotion     string
	Specs         string
	CurrentPrice  string
	OriginalPrice string
	Colors        string
	Brand         string
	Category      string
}

// Stats describes how many rows survived each stage of loading.
type Stats struct {
	Loaded int
	Valid  int
	Final  int
}

// ReadCSV reads at most maxRecords products from r. maxRecords <= 0 reads
// every row.
func ReadCSV(r io.Reader, maxRecords int) ([]Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := index[ColTitle]; !ok {
		return nil, ErrNoTitleColumn
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var products []Product
	for maxRecords <= 0 || len(products) < maxRecords {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(products)+2, err)
		}
		products = append(products, Product{
			Title:         field(row, ColTitle),
			Promotion:     field(row, ColPromotion),
			Specs:         field(row, ColSpecs),
			CurrentPrice:  field(row, ColCurrentPrice),
			OriginalPrice: field(row, ColOriginalPrice),
			Colors:        field(row, ColColors),
			Brand:         field(row, ColBrand),
			Category:      field(row, ColCategory),
		})
	}
	return products, nil
}

// Content builds the text that gets embedded for p.
func (p Product) Content() string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	if p.Promotion != "" {
		parts = append(parts, "Khuyến mãi: "+flatten(p.Promotion))
	}
	if p.Specs != "" {
		parts = append(parts, "Thông số: "+flatten(p.Specs))
	}
	if p.CurrentPrice != "" {
		parts = append(parts, "Giá hiện tại: "+p.CurrentPrice)
	}
	if p.OriginalPrice != "" {
		parts = append(parts, "Giá gốc: "+p.OriginalPrice)
	}
	if p.Colors != "" {
		parts = append(parts, "Màu sắc: "+FormatColors(p.Colors))
	}
	if p.Brand != "" {
		parts = append(parts, "Thương hiệu: "+p.Brand)
	}
	if p.Category != "" {
		parts = append(parts, "Danh mục: "+p.Category)
	}
	return strings.Join(parts, " | ")
}

// Input converts p into an index document.
func (p Product) Input() vectordb.Input {
	md := map[string]any{
		ColTitle:        p.Title,
		ColCurrentPrice: p.CurrentPrice,
		ColSpecs:        p.Specs,
		ColBrand:        p.Brand,
		ColCategory:     p.Category,
	}
	if p.Promotion != "" {
		md[ColPromotion] = flatten(p.Promotion)
	}
	if p.Colors != "" {
		md[ColColors] = FormatColors(p.Colors)
	}
	return vectordb.Input{Content: p.Content(), Metadata: md}
}

// FormatColors renders a color list. Exports store lists as "['Đen', 'Trắng']";
// anything else is returned unchanged.
func FormatColors(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return raw
	}
	var colors []string
	for c := range strings.SplitSeq(s[1:len(s)-1], ",") {
		c = strings.Trim(strings.TrimSpace(c), `'"`)
		if c != "" {
			colors = append(colors, c)
		}
	}
	return strings.Join(colors, ", ")
}

// Documents filters products and converts the survivors. Rows with a title of
// five runes or fewer, or content of twenty runes or fewer, are dropped.
func Documents(products []Product) ([]vectordb.Input, Stats) {
	stats := Stats{Loaded: len(products)}
	docs := make([]vectordb.Input, 0, len(products))
	for _, p := range products {
		if utf8.RuneCountInString(p.Title) <= minTitleLen {
			continue
		}
		stats.Valid++
		in := p.Input()
		if utf8.RuneCountInString(in.Content) <= minContentLen {
			continue
		}
		docs = append(docs, in)
	}
	stats.Final = len(docs)
	return docs, stats
}

// LoadFile reads and filters the catalog at path.
func LoadFile(path string, maxRecords int) ([]vectordb.Input, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	products, err := ReadCSV(f, maxRecords)
	if err != nil {
		return nil, Stats{}, err
	}
	docs, stats := Documents(products)
	return docs, stats, nil
}

func flatten(s string) string {
	return strings.NewReplacer("<br>", " ", "\r\n", " ", "\n", " ").Replace(s)
}
