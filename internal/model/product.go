package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/apperr"
)

// DefaultLowStockThreshold is the stock level below which a product is
// reported as low stock.
const DefaultLowStockThreshold = 5

// Product is a catalog entry.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductDraft is the operator-supplied part of a product, validated before
// any write.
type ProductDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// Normalize trims surrounding whitespace and converts text fields to NFC so
// that visually identical names compare equal in the name index.
func (d ProductDraft) Normalize() ProductDraft {
	d.Name = NormalizeText(d.Name)
	d.Description = NormalizeText(d.Description)
	return d
}

// Validate checks name, price and stock constraints.
// The first violated field is reported.
func (d ProductDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Validation("name", "product name is required")
	}
	if d.Price.IsNegative() {
		return apperr.Validation("price", "price must be >= 0")
	}
	if d.Stock < 0 {
		return apperr.Validation("stock", "stock must be >= 0")
	}
	return nil
}

// Draft returns the editable fields of p.
func (p Product) Draft() ProductDraft {
	return ProductDraft{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

// StockLevel classifies a stock quantity for display.
type StockLevel string

const (
	StockOut StockLevel = "out"
	StockLow StockLevel = "low"
	StockIn  StockLevel = "in"
)

// Label returns the display label of the level.
func (l StockLevel) Label() string {
	switch l {
	case StockOut:
		return "Out of Stock"
	case StockLow:
		return "Low Stock"
	default:
		return "In Stock"
	}
}

// StockLevelOf classifies stock against the low-stock threshold.
func StockLevelOf(stock, threshold int) StockLevel {
	switch {
	case stock <= 0:
		return StockOut
	case stock < threshold:
		return StockLow
	default:
		return StockIn
	}
}

// NormalizeText trims s and converts it to Unicode NFC.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
