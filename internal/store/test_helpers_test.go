package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct builds a product with minimal required fields.
func createTestProduct(name, price string, stock int) model.Product {
	return model.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

// mustAddProduct inserts a product and returns it with its id.
func mustAddProduct(t *testing.T, s *Store, p model.Product) model.Product {
	t.Helper()
	id, err := s.AddProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("AddProduct() failed: %v", err)
	}
	p.ID = id
	return p
}

// createTestSale builds a settled sale for the given lines.
func createTestSale(ref string, date time.Time, lines ...model.CartLine) model.Sale {
	total := model.SumTotals(lines)
	paid := total
	due, change := model.Settle(total, paid)
	return model.Sale{
		Ref:           ref,
		CustomerName:  model.WalkInCustomer,
		Date:          date,
		Items:         lines,
		TotalAmount:   total,
		PaidAmount:    paid,
		DueAmount:     due,
		ChangeAmount:  change,
		PaymentMethod: model.PaymentCash,
		TotalItems:    model.SumQuantities(lines),
	}
}

// line snapshots p with the given quantity.
func line(p model.Product, qty int) model.CartLine {
	return model.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  qty,
		Total:     model.LineTotal(p.Price, qty),
	}
}

// mustAddSale inserts a sale and returns it with its id.
func mustAddSale(t *testing.T, s *Store, sale model.Sale) model.Sale {
	t.Helper()
	id, err := s.AddSale(context.Background(), sale)
	if err != nil {
		t.Fatalf("AddSale() failed: %v", err)
	}
	sale.ID = id
	return sale
}
