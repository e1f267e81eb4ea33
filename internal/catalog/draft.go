package catalog

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

// ParseDraft converts operator text input into a validated draft.
func ParseDraft(name, description, price, stock string) (model.ProductDraft, error) {
	draft := model.ProductDraft{Name: name, Description: description}.Normalize()
	if draft.Name == "" {
		return model.ProductDraft{}, apperr.Validation("name", "product name is required")
	}

	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || p.IsNegative() {
		return model.ProductDraft{}, apperr.Validation("price", "enter a valid price")
	}
	draft.Price = p

	n, err := strconv.Atoi(strings.TrimSpace(stock))
	if err != nil || n < 0 {
		return model.ProductDraft{}, apperr.Validation("stock", "enter a valid stock quantity")
	}
	draft.Stock = n

	return draft, draft.Validate()
}
