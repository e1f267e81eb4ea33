// Package catalog keeps the in-memory product catalog in step with the store.
//
// Every mutation writes through to the store and then reloads the whole
// cache, so after a successful call the cache equals the persisted
// collection. Reads (ByID, All, Len, Search) never touch the store.
//
// A Catalog is not safe for concurrent use.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/roach88/offpos/internal/clock"
	"github.com/roach88/offpos/internal/model"
)

// Store is the product collection the catalog writes through to.
type Store interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	AddProduct(ctx context.Context, p model.Product) (int64, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// Catalog caches every product keyed by id.
type Catalog struct {
	store Store
	clock clock.Clock
	log   *zap.Logger

	byID  map[int64]model.Product
	order []int64
}

// New creates an empty catalog. Call Load to populate it.
func New(store Store, clk clock.Clock, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		store: store,
		clock: clk,
		log:   log.Named("catalog"),
		byID:  make(map[int64]model.Product),
	}
}

// Load replaces the cache with the full store contents.
// On failure the previous cache is kept.
func (c *Catalog) Load(ctx context.Context) error {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	byID := make(map[int64]model.Product, len(products))
	order := make([]int64, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		order = append(order, p.ID)
	}
	c.byID = byID
	c.order = order

	c.log.Debug("catalog loaded", zap.Int("products", len(order)))
	return nil
}

// Add validates draft, persists a new product and reloads.
// Returns the stored product.
func (c *Catalog) Add(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return model.Product{}, err
	}
	p, err := c.insert(ctx, draft)
	if err != nil {
		return model.Product{}, err
	}
	if err := c.Load(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// insert writes a validated draft without reloading.
func (c *Catalog) insert(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	now := c.clock.Now()
	p := model.Product{
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Stock:       draft.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := c.store.AddProduct(ctx, p)
	if err != nil {
		return model.Product{}, fmt.Errorf("add product: %w", err)
	}
	p.ID = id

	c.log.Info("product added", zap.Int64("id", id), zap.String("name", p.Name))
	return p, nil
}

// Update validates draft and replaces the editable fields of product id.
// CreatedAt is preserved; UpdatedAt is stamped from the clock.
func (c *Catalog) Update(ctx context.Context, id int64, draft model.ProductDraft) (model.Product, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return model.Product{}, err
	}

	current, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	p := model.Product{
		ID:          id,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Stock:       draft.Stock,
		CreatedAt:   current.CreatedAt,
		UpdatedAt:   c.clock.Now(),
	}
	if err := c.store.UpdateProduct(ctx, p); err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	c.log.Info("product updated", zap.Int64("id", id), zap.String("name", p.Name))
	if err := c.Load(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// Delete removes product id and reloads. Past sales are unaffected.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	c.log.Info("product deleted", zap.Int64("id", id))
	return c.Load(ctx)
}

// ByID returns the cached product.
func (c *Catalog) ByID(id int64) (model.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns a copy of the cached products in id order.
func (c *Catalog) All() []model.Product {
	out := make([]model.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of cached products.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Search returns products whose name or description contains query,
// compared under Unicode case folding. An empty query returns All.
func (c *Catalog) Search(query string) []model.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.All()
	}

	fold := cases.Fold()
	needle := fold.String(model.NormalizeText(query))

	var out []model.Product
	for _, id := range c.order {
		p := c.byID[id]
		if strings.Contains(fold.String(p.Name), needle) ||
			strings.Contains(fold.String(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}

// LowStock returns products below threshold (including out of stock).
func (c *Catalog) LowStock(threshold int) []model.Product {
	var out []model.Product
	for _, id := range c.order {
		p := c.byID[id]
		if model.StockLevelOf(p.Stock, threshold) != model.StockIn {
			out = append(out, p)
		}
	}
	return out
}
