package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

// productRow mirrors the products table. Money and time travel as TEXT.
type productRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Price       string `db:"price"`
	Stock       int    `db:"stock"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func productRowFrom(p model.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Stock:       p.Stock,
		CreatedAt:   model.FormatTimestamp(p.CreatedAt),
		UpdatedAt:   model.FormatTimestamp(p.UpdatedAt),
	}
}

func (r productRow) toModel() (model.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %d price: %w", r.ID, err)
	}
	created, err := model.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %d: %w", r.ID, err)
	}
	updated, err := model.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %d: %w", r.ID, err)
	}
	return model.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       price,
		Stock:       r.Stock,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

// saleRow mirrors the sales table. Items are stored as a JSON array.
type saleRow struct {
	ID            int64  `db:"id"`
	Ref           string `db:"ref"`
	CustomerName  string `db:"customer_name"`
	Date          string `db:"date"`
	Items         string `db:"items"`
	TotalAmount   string `db:"total_amount"`
	PaidAmount    string `db:"paid_amount"`
	DueAmount     string `db:"due_amount"`
	ChangeAmount  string `db:"change_amount"`
	PaymentMethod string `db:"payment_method"`
	TotalItems    int    `db:"total_items"`
	LineCount     int    `db:"line_count"`
}

func saleRowFrom(s model.Sale) (saleRow, error) {
	items, err := marshalItems(s.Items)
	if err != nil {
		return saleRow{}, err
	}
	return saleRow{
		ID:            s.ID,
		Ref:           s.Ref,
		CustomerName:  s.CustomerName,
		Date:          model.FormatTimestamp(s.Date),
		Items:         items,
		TotalAmount:   s.TotalAmount.String(),
		PaidAmount:    s.PaidAmount.String(),
		DueAmount:     s.DueAmount.String(),
		ChangeAmount:  s.ChangeAmount.String(),
		PaymentMethod: string(s.PaymentMethod),
		TotalItems:    s.TotalItems,
		LineCount:     len(s.Items),
	}, nil
}

func (r saleRow) toModel() (model.Sale, error) {
	date, err := model.ParseTimestamp(r.Date)
	if err != nil {
		return model.Sale{}, fmt.Errorf("sale %d: %w", r.ID, err)
	}
	items, err := unmarshalItems(r.Items)
	if err != nil {
		return model.Sale{}, fmt.Errorf("sale %d: %w", r.ID, err)
	}

	amounts := [4]decimal.Decimal{}
	for i, text := range []string{r.TotalAmount, r.PaidAmount, r.DueAmount, r.ChangeAmount} {
		if amounts[i], err = decimal.NewFromString(text); err != nil {
			return model.Sale{}, fmt.Errorf("sale %d amount: %w", r.ID, err)
		}
	}

	return model.Sale{
		ID:            r.ID,
		Ref:           r.Ref,
		CustomerName:  r.CustomerName,
		Date:          date,
		Items:         items,
		TotalAmount:   amounts[0],
		PaidAmount:    amounts[1],
		DueAmount:     amounts[2],
		ChangeAmount:  amounts[3],
		PaymentMethod: model.PaymentMethod(r.PaymentMethod),
		TotalItems:    r.TotalItems,
	}, nil
}

// movementRow mirrors the stock_movements table.
type movementRow struct {
	ID          int64  `db:"id"`
	SaleID      int64  `db:"sale_id"`
	LineNo      int    `db:"line_no"`
	ProductID   int64  `db:"product_id"`
	Quantity    int    `db:"quantity"`
	StockBefore int    `db:"stock_before"`
	StockAfter  int    `db:"stock_after"`
	Status      string `db:"status"`
	CreatedAt   string `db:"created_at"`
}

func (r movementRow) toModel() (model.StockMovement, error) {
	created, err := model.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return model.StockMovement{}, fmt.Errorf("movement %d: %w", r.ID, err)
	}
	return model.StockMovement{
		ID:          r.ID,
		SaleID:      r.SaleID,
		LineNo:      r.LineNo,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		StockBefore: r.StockBefore,
		StockAfter:  r.StockAfter,
		Status:      model.MovementStatus(r.Status),
		CreatedAt:   created,
	}, nil
}

// marshalItems converts sale lines to JSON TEXT for storage.
// HTML escaping is disabled so product names are stored verbatim.
func marshalItems(items []model.CartLine) (string, error) {
	if items == nil {
		items = []model.CartLine{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalItems parses JSON TEXT to sale lines.
func unmarshalItems(data string) ([]model.CartLine, error) {
	if data == "" || data == "[]" {
		return []model.CartLine{}, nil
	}
	var items []model.CartLine
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return items, nil
}
