// Package cart holds the in-progress order: at most one line per product,
// in the order products were first added.
//
// The cart is ephemeral and never persisted. It does not check stock; that is
// the job of the checkout selection step. A Cart is not safe for concurrent
// use.
package cart

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

// Cart maps product id to line.
type Cart struct {
	lines []model.CartLine
	index map[int64]int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[int64]int)}
}

// AddLine adds quantity of p. An existing line for p.ID has its quantity
// increased and total recomputed, keeping its original price snapshot;
// otherwise a new line snapshots p's name and price.
//
// quantity must be >= 1; otherwise the cart is unchanged and a VALIDATION
// error is returned.
func (c *Cart) AddLine(p model.Product, quantity int) (model.CartLine, error) {
	if quantity < 1 {
		return model.CartLine{}, apperr.Validation("quantity", "quantity must be at least 1")
	}

	if i, ok := c.index[p.ID]; ok {
		l := &c.lines[i]
		l.Quantity += quantity
		l.Total = model.LineTotal(l.Price, l.Quantity)
		return *l, nil
	}

	l := model.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
		Total:     model.LineTotal(p.Price, quantity),
	}
	c.index[p.ID] = len(c.lines)
	c.lines = append(c.lines, l)
	return l, nil
}

// RemoveLine drops the line for id. Reports whether a line was removed.
func (c *Cart) RemoveLine(id int64) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ProductID] = j
	}
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[int64]int)
}

// Snapshot returns an independent copy of the lines in insertion order.
func (c *Cart) Snapshot() []model.CartLine {
	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for id.
func (c *Cart) Line(id int64) (model.CartLine, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.CartLine{}, false
	}
	return c.lines[i], true
}

// Total returns the sum of line totals.
func (c *Cart) Total() decimal.Decimal {
	return model.SumTotals(c.lines)
}

// Count returns the sum of line quantities.
func (c *Cart) Count() int {
	return model.SumQuantities(c.lines)
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ParseQuantity coerces operator input to a positive quantity. Input is
// read in base 10; unparsable, zero or negative input yields 1.
func ParseQuantity(text string) int {
	n, err := model.ParseWholeNumber(text)
	if err != nil || n < 1 || n > math.MaxInt32 {
		return 1
	}
	return int(n)
}
