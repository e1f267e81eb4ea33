package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

const movementColumns = `id, sale_id, line_no, product_id, quantity,
	stock_before, stock_after, status, created_at`

// ApplyStockDeduction deducts one sale line from product stock and records
// the movement, in one transaction.
//
// The call is idempotent on (SaleID, LineNo): if a movement already exists it
// is returned unchanged and stock is not touched again. A product that no
// longer exists yields a movement with status skipped; the sale stands.
// Stock is clamped at zero.
func (s *Store) ApplyStockDeduction(ctx context.Context, d model.PendingDeduction, at time.Time) (model.StockMovement, error) {
	const op = "deduct stock"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.StockMovement{}, apperr.Storage(op, err)
	}
	defer tx.Rollback()

	var lineCount int
	err = tx.GetContext(ctx, &lineCount, `SELECT line_count FROM sales WHERE id = ?`, d.SaleID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StockMovement{}, apperr.NotFound("sales", d.SaleID)
	}
	if err != nil {
		return model.StockMovement{}, apperr.Storage(op, err)
	}
	if d.LineNo < 0 || d.LineNo >= lineCount {
		return model.StockMovement{}, apperr.Validation("lineNo",
			fmt.Sprintf("line %d out of range for sale %d", d.LineNo, d.SaleID))
	}
	if d.Quantity < 1 {
		return model.StockMovement{}, apperr.Validation("quantity", "quantity must be >= 1")
	}

	var existing movementRow
	err = tx.GetContext(ctx, &existing,
		`SELECT `+movementColumns+` FROM stock_movements WHERE sale_id = ? AND line_no = ?`,
		d.SaleID, d.LineNo)
	if err == nil {
		m, err := existing.toModel()
		if err != nil {
			return model.StockMovement{}, apperr.Storage(op, err)
		}
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.StockMovement{}, apperr.Storage(op, err)
	}

	stamp := model.FormatTimestamp(at)
	row := movementRow{
		SaleID:    d.SaleID,
		LineNo:    d.LineNo,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		Status:    string(model.MovementApplied),
		CreatedAt: stamp,
	}

	var stock int
	err = tx.GetContext(ctx, &stock, `SELECT stock FROM products WHERE id = ?`, d.ProductID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		row.Status = string(model.MovementSkipped)
	case err != nil:
		return model.StockMovement{}, apperr.Storage(op, err)
	default:
		row.StockBefore = stock
		row.StockAfter = model.DeductStock(stock, d.Quantity)
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
			row.StockAfter, stamp, d.ProductID); err != nil {
			return model.StockMovement{}, apperr.Storage(op, err)
		}
	}

	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO stock_movements
		(sale_id, line_no, product_id, quantity, stock_before, stock_after, status, created_at)
		VALUES (:sale_id, :line_no, :product_id, :quantity, :stock_before, :stock_after, :status, :created_at)
	`, row)
	if err != nil {
		return model.StockMovement{}, apperr.Storage(op, err)
	}
	if row.ID, err = res.LastInsertId(); err != nil {
		return model.StockMovement{}, apperr.Storage(op, err)
	}

	if err := tx.Commit(); err != nil {
		return model.StockMovement{}, apperr.Storage(op, err)
	}

	return row.toModel()
}

// ListMovements returns the journal rows of a sale ordered by line.
func (s *Store) ListMovements(ctx context.Context, saleID int64) ([]model.StockMovement, error) {
	var rows []movementRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+movementColumns+` FROM stock_movements WHERE sale_id = ? ORDER BY line_no ASC`,
		saleID); err != nil {
		return nil, apperr.Storage("list movements", err)
	}

	movements := make([]model.StockMovement, 0, len(rows))
	for _, row := range rows {
		m, err := row.toModel()
		if err != nil {
			return nil, apperr.Storage("list movements", err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// PendingDeductions returns every sale line that has no journal row yet,
// ordered by sale id then line number.
//
// A sale is incomplete when it has fewer movements than lines; this happens
// when the process stops or storage fails between AddSale and the last
// ApplyStockDeduction.
func (s *Store) PendingDeductions(ctx context.Context) ([]model.PendingDeduction, error) {
	const op = "find pending deductions"

	var incomplete []saleRow
	err := s.db.SelectContext(ctx, &incomplete, `
		SELECT s.id AS id, s.items AS items
		FROM sales s
		LEFT JOIN stock_movements m ON m.sale_id = s.id
		GROUP BY s.id
		HAVING COUNT(m.id) < s.line_count
		ORDER BY s.id ASC
	`)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	var pending []model.PendingDeduction
	for _, sale := range incomplete {
		items, err := unmarshalItems(sale.Items)
		if err != nil {
			return nil, apperr.Storage(op, fmt.Errorf("sale %d: %w", sale.ID, err))
		}

		var done []int
		if err := s.db.SelectContext(ctx, &done,
			`SELECT line_no FROM stock_movements WHERE sale_id = ?`, sale.ID); err != nil {
			return nil, apperr.Storage(op, err)
		}
		recorded := make(map[int]bool, len(done))
		for _, n := range done {
			recorded[n] = true
		}

		for lineNo, item := range items {
			if recorded[lineNo] {
				continue
			}
			pending = append(pending, model.PendingDeduction{
				SaleID:    sale.ID,
				LineNo:    lineNo,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
	}
	return pending, nil
}
