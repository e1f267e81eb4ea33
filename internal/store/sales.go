package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

const saleColumns = `id, ref, customer_name, date, items, total_amount, paid_amount,
	due_amount, change_amount, payment_method, total_items, line_count`

// ListSales returns every sale ordered by id.
func (s *Store) ListSales(ctx context.Context) ([]model.Sale, error) {
	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+saleColumns+` FROM sales ORDER BY id ASC`); err != nil {
		return nil, apperr.Storage("list sales", err)
	}
	return toSales("list sales", rows)
}

// GetSale returns the sale with the given id.
func (s *Store) GetSale(ctx context.Context, id int64) (model.Sale, error) {
	var row saleRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sale{}, apperr.NotFound("sales", id)
	}
	if err != nil {
		return model.Sale{}, apperr.Storage("get sale", err)
	}
	sale, err := row.toModel()
	if err != nil {
		return model.Sale{}, apperr.Storage("get sale", err)
	}
	return sale, nil
}

// AddSale inserts sale and returns the assigned id. sale.ID is ignored.
// Once AddSale returns, the sale is durable.
func (s *Store) AddSale(ctx context.Context, sale model.Sale) (int64, error) {
	row, err := saleRowFrom(sale)
	if err != nil {
		return 0, apperr.Storage("add sale", err)
	}
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sales
		(ref, customer_name, date, items, total_amount, paid_amount, due_amount,
		 change_amount, payment_method, total_items, line_count)
		VALUES (:ref, :customer_name, :date, :items, :total_amount, :paid_amount, :due_amount,
		 :change_amount, :payment_method, :total_items, :line_count)
	`, row)
	if err != nil {
		return 0, apperr.Storage("add sale", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("add sale", err)
	}
	return id, nil
}

// UpdateSale replaces every field of the sale with sale.ID.
// Journal rows already recorded for the sale are kept.
func (s *Store) UpdateSale(ctx context.Context, sale model.Sale) error {
	row, err := saleRowFrom(sale)
	if err != nil {
		return apperr.Storage("update sale", err)
	}
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE sales
		SET ref = :ref, customer_name = :customer_name, date = :date, items = :items,
		    total_amount = :total_amount, paid_amount = :paid_amount,
		    due_amount = :due_amount, change_amount = :change_amount,
		    payment_method = :payment_method, total_items = :total_items,
		    line_count = :line_count
		WHERE id = :id
	`, row)
	if err != nil {
		return apperr.Storage("update sale", err)
	}
	return requireAffected(res, "update sale", "sales", sale.ID)
}

// DeleteSale removes the sale and its journal rows.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage("delete sale", err)
	}
	return requireAffected(res, "delete sale", "sales", id)
}

// FindSalesByCustomer returns sales recorded for exactly this customer name,
// ordered by id.
func (s *Store) FindSalesByCustomer(ctx context.Context, name string) ([]model.Sale, error) {
	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+saleColumns+` FROM sales WHERE customer_name = ? ORDER BY id ASC`,
		model.NormalizeText(name)); err != nil {
		return nil, apperr.Storage("find sales by customer", err)
	}
	return toSales("find sales by customer", rows)
}

// FindSalesBetween returns sales with from <= date < to, oldest first.
// A zero bound is open.
func (s *Store) FindSalesBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1 = 1`
	var args []any
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, model.FormatTimestamp(from))
	}
	if !to.IsZero() {
		query += ` AND date < ?`
		args = append(args, model.FormatTimestamp(to))
	}
	query += ` ORDER BY date ASC, id ASC`

	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperr.Storage("find sales between", err)
	}
	return toSales("find sales between", rows)
}

func toSales(op string, rows []saleRow) ([]model.Sale, error) {
	sales := make([]model.Sale, 0, len(rows))
	for _, row := range rows {
		sale, err := row.toModel()
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		sales = append(sales, sale)
	}
	return sales, nil
}
