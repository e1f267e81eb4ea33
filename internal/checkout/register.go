package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/cart"
	"github.com/roach88/offpos/internal/catalog"
	"github.com/roach88/offpos/internal/clock"
	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
)

// Store is the persistence the workflow writes to.
type Store interface {
	AddSale(ctx context.Context, sale model.Sale) (int64, error)
	ApplyStockDeduction(ctx context.Context, d model.PendingDeduction, at time.Time) (model.StockMovement, error)
	PendingDeductions(ctx context.Context) ([]model.PendingDeduction, error)
}

// RefGenerator produces unique sale references.
type RefGenerator interface {
	NewRef() string
}

// UUIDRefs generates time-ordered UUIDv7 references.
type UUIDRefs struct{}

// NewRef implements RefGenerator.
func (UUIDRefs) NewRef() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Durations of the cart notifications.
const (
	addedDuration   = 2500 * time.Millisecond
	removedDuration = 2000 * time.Millisecond
)

// Deps wires a Register. Refs defaults to UUIDRefs, Notifier to a no-op
// recorder and Logger to zap.NewNop.
type Deps struct {
	Store    Store
	Catalog  *catalog.Catalog
	Ledger   *ledger.Ledger
	Cart     *cart.Cart
	Clock    clock.Clock
	Notifier notify.Notifier
	Refs     RefGenerator
	Logger   *zap.Logger

	// Currency is prefixed to amounts in notifications.
	Currency string
}

// Register runs the selection step and sale completion over one cart.
// It is not safe for concurrent use.
type Register struct {
	store    Store
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	cart     *cart.Cart
	clock    clock.Clock
	notifier notify.Notifier
	refs     RefGenerator
	log      *zap.Logger
	currency string
}

// New creates a Register.
func New(d Deps) *Register {
	if d.Refs == nil {
		d.Refs = UUIDRefs{}
	}
	if d.Notifier == nil {
		d.Notifier = &notify.Recorder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	return &Register{
		store:    d.Store,
		catalog:  d.Catalog,
		ledger:   d.Ledger,
		cart:     d.Cart,
		clock:    d.Clock,
		notifier: d.Notifier,
		refs:     d.Refs,
		log:      d.Logger.Named("checkout"),
		currency: d.Currency,
	}
}

// Cart returns the register's cart.
func (r *Register) Cart() *cart.Cart {
	return r.cart
}

// Select is the selection step: it checks quantity and stock against the
// catalog and adds the product to the cart. The quantity already in the cart
// counts against stock. On any rejection the cart is unchanged.
func (r *Register) Select(productID int64, quantity int) (model.CartLine, error) {
	if quantity < 1 {
		r.fail("Invalid Quantity", "Quantity must be at least 1.", notify.Error)
		return model.CartLine{}, apperr.Validation("quantity", "quantity must be at least 1")
	}

	p, ok := r.catalog.ByID(productID)
	if !ok {
		r.fail("Product Not Found", "This product could not be loaded.", notify.Error)
		return model.CartLine{}, apperr.NotFound("products", productID)
	}

	if p.Stock <= 0 {
		r.fail("Out of Stock", fmt.Sprintf("%s is out of stock.", p.Name), notify.Error)
		return model.CartLine{}, apperr.Validation("stock", fmt.Sprintf("%s is out of stock", p.Name))
	}

	inCart := 0
	if l, ok := r.cart.Line(productID); ok {
		inCart = l.Quantity
	}
	if inCart+quantity > p.Stock {
		available := p.Stock - inCart
		r.fail("Insufficient Stock", fmt.Sprintf("Only %d units available.", available), notify.Warning)
		return model.CartLine{}, apperr.Validation("quantity",
			fmt.Sprintf("insufficient stock: only %d units available", available))
	}

	l, err := r.cart.AddLine(p, quantity)
	if err != nil {
		return model.CartLine{}, err
	}
	r.notifier.Notify(notify.Notification{
		Title:    "Added to cart",
		Message:  fmt.Sprintf("%s × %d", p.Name, quantity),
		Severity: notify.Success,
		Duration: addedDuration,
	})
	return l, nil
}

// Remove drops a product's line from the cart.
func (r *Register) Remove(productID int64) bool {
	l, ok := r.cart.Line(productID)
	if !ok {
		return false
	}
	r.cart.RemoveLine(productID)
	r.notifier.Notify(notify.Notification{
		Title:    "Removed",
		Message:  fmt.Sprintf("%s removed from cart", l.Name),
		Severity: notify.Info,
		Duration: removedDuration,
	})
	return true
}

// BalanceStatus describes how a tender covers the cart total.
type BalanceStatus string

const (
	Unpaid    BalanceStatus = "unpaid"
	Partial   BalanceStatus = "partial"
	FullyPaid BalanceStatus = "paid"
)

// Quote is the live balance for a tender against the current cart.
type Quote struct {
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
	Due    decimal.Decimal `json:"due"`
	Change decimal.Decimal `json:"change"`
	Items  int             `json:"items"`
	Status BalanceStatus   `json:"status"`
}

// Quote computes due and change for paid against the cart total.
func (r *Register) Quote(paid decimal.Decimal) Quote {
	total := r.cart.Total()
	due, change := model.Settle(total, paid)
	q := Quote{Total: total, Paid: paid, Due: due, Change: change, Items: r.cart.Count()}
	switch {
	case paid.IsZero():
		q.Status = Unpaid
	case due.IsPositive():
		q.Status = Partial
	default:
		q.Status = FullyPaid
	}
	return q
}

// ParseTender converts operator input to a paid amount. Unparsable input
// is 0; a negative amount is a VALIDATION error.
func ParseTender(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.Validation("paidAmount", "amount paid cannot be negative")
	}
	return d, nil
}

func (r *Register) fail(title, message string, sev notify.Severity) {
	r.notifier.Notify(notify.Notification{Title: title, Message: message, Severity: sev})
}

func (r *Register) money(d decimal.Decimal) string {
	return r.currency + model.FormatAmount(d)
}
