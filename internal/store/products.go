package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ListProducts returns every product ordered by id.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products ORDER BY id ASC`); err != nil {
		return nil, apperr.Storage("list products", err)
	}
	return toProducts("list products", rows)
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, apperr.NotFound("products", id)
	}
	if err != nil {
		return model.Product{}, apperr.Storage("get product", err)
	}
	p, err := row.toModel()
	if err != nil {
		return model.Product{}, apperr.Storage("get product", err)
	}
	return p, nil
}

// AddProduct inserts p and returns the assigned id. p.ID is ignored.
func (s *Store) AddProduct(ctx context.Context, p model.Product) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (name, description, price, stock, created_at, updated_at)
		VALUES (:name, :description, :price, :stock, :created_at, :updated_at)
	`, productRowFrom(p))
	if err != nil {
		return 0, apperr.Storage("add product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("add product", err)
	}
	return id, nil
}

// UpdateProduct replaces every field of the product with p.ID.
func (s *Store) UpdateProduct(ctx context.Context, p model.Product) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, description = :description, price = :price,
		    stock = :stock, created_at = :created_at, updated_at = :updated_at
		WHERE id = :id
	`, productRowFrom(p))
	if err != nil {
		return apperr.Storage("update product", err)
	}
	return requireAffected(res, "update product", "products", p.ID)
}

// DeleteProduct removes the product with the given id. Past sales keep their
// own snapshot of the product and are unaffected.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage("delete product", err)
	}
	return requireAffected(res, "delete product", "products", id)
}

// FindProductsByName returns products whose name equals name, ordered by id.
func (s *Store) FindProductsByName(ctx context.Context, name string) ([]model.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products WHERE name = ? ORDER BY id ASC`,
		model.NormalizeText(name)); err != nil {
		return nil, apperr.Storage("find products by name", err)
	}
	return toProducts("find products by name", rows)
}

func toProducts(op string, rows []productRow) ([]model.Product, error) {
	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// requireAffected turns a zero-row update or delete into NOT_FOUND.
func requireAffected(res sql.Result, op, collection string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if n == 0 {
		return apperr.NotFound(collection, id)
	}
	return nil
}
