package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/cart"
	"github.com/roach88/offpos/internal/catalog"
	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/store"
	"github.com/roach88/offpos/internal/testutil"
)

// flakyStore wraps a real store and injects failures.
type flakyStore struct {
	*store.Store
	failAddSale  error
	failDeductAt int // 1-based call number of ApplyStockDeduction to fail, 0 = never
	deductErr    error
	deductCalls  int
}

func (f *flakyStore) AddSale(ctx context.Context, s model.Sale) (int64, error) {
	if f.failAddSale != nil {
		return 0, f.failAddSale
	}
	return f.Store.AddSale(ctx, s)
}

func (f *flakyStore) ApplyStockDeduction(ctx context.Context, d model.PendingDeduction, at time.Time) (model.StockMovement, error) {
	f.deductCalls++
	if f.failDeductAt > 0 && f.deductCalls == f.failDeductAt {
		return model.StockMovement{}, f.deductErr
	}
	return f.Store.ApplyStockDeduction(ctx, d, at)
}

type fixture struct {
	store    *flakyStore
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	register *Register
	notes    *notify.Recorder
	ids      map[string]int64
}

func newFixture(t *testing.T, products ...model.ProductDraft) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fs := &flakyStore{Store: s}
	clk := testutil.NewDefaultClock()
	cat := catalog.New(s, clk, zap.NewNop())
	led := ledger.New(s, zap.NewNop())
	notes := &notify.Recorder{}

	added, err := cat.Import(ctx, products)
	require.NoError(t, err)
	require.NoError(t, led.Load(ctx))

	ids := make(map[string]int64)
	for _, p := range added {
		ids[p.Name] = p.ID
	}

	reg := New(Deps{
		Store:    fs,
		Catalog:  cat,
		Ledger:   led,
		Cart:     cart.New(),
		Clock:    clk,
		Notifier: notes,
		Refs:     testutil.NewSequentialRefs(""),
		Logger:   zap.NewNop(),
		Currency: "৳",
	})
	return &fixture{store: fs, catalog: cat, ledger: led, register: reg, notes: notes, ids: ids}
}

func product(name, price string, stock int) model.ProductDraft {
	return model.ProductDraft{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) stock(t *testing.T, name string) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), f.ids[name])
	require.NoError(t, err)
	return p.Stock
}

func TestSelect_AddsToCart(t *testing.T) {
	f := newFixture(t, product("A", "50", 10))

	l, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, 1, f.register.Cart().Len())

	last, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Success, last.Severity)
	assert.Equal(t, "A × 2", last.Message)
}

func TestSelect_Rejections(t *testing.T) {
	f := newFixture(t, product("A", "50", 3), product("Empty", "5", 0))

	_, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      int64
		qty     int
		check   func(error) bool
		title   string
		message string
	}{
		{"zero quantity", f.ids["A"], 0, apperr.IsValidation, "Invalid Quantity", "Quantity must be at least 1."},
		{"unknown product", 999, 1, apperr.IsNotFound, "Product Not Found", "This product could not be loaded."},
		{"out of stock", f.ids["Empty"], 1, apperr.IsValidation, "Out of Stock", "Empty is out of stock."},
		{"exceeds stock with cart", f.ids["A"], 2, apperr.IsValidation, "Insufficient Stock", "Only 1 units available."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.register.Select(tt.id, tt.qty)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)

			last, ok := f.notes.Last()
			require.True(t, ok)
			assert.Equal(t, tt.title, last.Title)
			assert.Equal(t, tt.message, last.Message)

			l, _ := f.register.Cart().Line(f.ids["A"])
			assert.Equal(t, 2, l.Quantity, "cart must be unchanged")
		})
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t, product("A", "50", 10))
	_, err := f.register.Select(f.ids["A"], 1)
	require.NoError(t, err)

	assert.True(t, f.register.Remove(f.ids["A"]))
	assert.False(t, f.register.Remove(f.ids["A"]))
	assert.True(t, f.register.Cart().IsEmpty())

	last, _ := f.notes.Last()
	assert.Equal(t, "A removed from cart", last.Message)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, product("A", "50", 10))
	_, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)

	q := f.register.Quote(decimal.Zero)
	assert.Equal(t, Unpaid, q.Status)
	assert.Equal(t, "100.00", q.Due.StringFixed(2))

	q = f.register.Quote(dec("60"))
	assert.Equal(t, Partial, q.Status)
	assert.Equal(t, "40.00", q.Due.StringFixed(2))
	assert.True(t, q.Change.IsZero())

	q = f.register.Quote(dec("120"))
	assert.Equal(t, FullyPaid, q.Status)
	assert.Equal(t, "20.00", q.Change.StringFixed(2))
	assert.Equal(t, 2, q.Items)
}

func TestParseTender(t *testing.T) {
	d, err := ParseTender(" 120.50 ")
	require.NoError(t, err)
	assert.Equal(t, "120.50", d.StringFixed(2))

	d, err = ParseTender("lots")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseTender("-5")
	assert.True(t, apperr.IsValidation(err))
}

// Scenario: overpayment with change.
func TestComplete_FullPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "50", 10))
	_, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)

	r, err := f.register.Complete(ctx, Tender{Paid: dec("120")})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Nil(t, r.Warning)

	sale := r.Sale
	assert.Greater(t, sale.ID, int64(0))
	assert.Equal(t, "sale-0001", sale.Ref)
	assert.Equal(t, model.WalkInCustomer, sale.CustomerName)
	assert.Equal(t, model.PaymentCash, sale.PaymentMethod)
	assert.Equal(t, "100.00", sale.TotalAmount.StringFixed(2))
	assert.True(t, sale.DueAmount.IsZero())
	assert.Equal(t, "20.00", sale.ChangeAmount.StringFixed(2))
	assert.Equal(t, 2, sale.TotalItems)

	assert.Equal(t, 8, f.stock(t, "A"))
	cached, _ := f.catalog.ByID(f.ids["A"])
	assert.Equal(t, 8, cached.Stock, "catalog reloaded")
	assert.Equal(t, 1, f.ledger.Len(), "ledger reloaded")
	assert.True(t, f.register.Cart().IsEmpty())

	require.Len(t, r.Movements, 1)
	assert.Equal(t, model.MovementApplied, r.Movements[0].Status)

	last, _ := f.notes.Last()
	assert.Equal(t, "Sale Complete!", last.Title)
	assert.Equal(t, "Walk-in Customer: ৳100.00 via Cash", last.Message)
	assert.Equal(t, notify.SaleDuration, last.Duration)
}

// Scenario: partial payment leaves an amount due.
func TestComplete_PartialPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "50", 10))
	_, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)

	r, err := f.register.Complete(ctx, Tender{CustomerName: " Ada ", Paid: dec("60"), Method: model.PaymentMobile})
	require.NoError(t, err)
	assert.Equal(t, "Ada", r.Sale.CustomerName)
	assert.Equal(t, "40.00", r.Sale.DueAmount.StringFixed(2))
	assert.True(t, r.Sale.ChangeAmount.IsZero())
	assert.Equal(t, model.PaymentMobile, r.Sale.PaymentMethod)
}

// Scenario: selling more than stock clamps at zero.
func TestComplete_ClampsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "5", 3))

	// Stock shrinks after the item is in the cart.
	_, err := f.register.Select(f.ids["A"], 3)
	require.NoError(t, err)
	_, err = f.catalog.Update(ctx, f.ids["A"], product("A", "5", 1))
	require.NoError(t, err)

	r, err := f.register.Complete(ctx, Tender{Paid: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Movements[0].StockAfter)
	assert.Equal(t, 0, f.stock(t, "A"))
}

// Scenario: a product deleted between add and checkout is skipped.
func TestComplete_DeletedProductSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "10", 5), product("B", "20", 5))

	_, err := f.register.Select(f.ids["A"], 1)
	require.NoError(t, err)
	_, err = f.register.Select(f.ids["B"], 2)
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, f.ids["A"]))

	r, err := f.register.Complete(ctx, Tender{Paid: dec("50")})
	require.NoError(t, err)
	require.Error(t, r.Warning)
	assert.True(t, apperr.IsPartialCommit(r.Warning))
	assert.Equal(t, []int64{f.ids["A"]}, r.Skipped)

	assert.Equal(t, 3, f.stock(t, "B"))
	assert.Equal(t, "A", r.Sale.Items[0].Name, "sale keeps the snapshot")

	pending, err := f.store.PendingDeductions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var titles []string
	for _, n := range f.notes.All() {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "Stock Not Updated")
}

// Scenario: empty cart writes nothing.
func TestComplete_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "10", 5))

	r, err := f.register.Complete(ctx, Tender{Paid: dec("10")})
	assert.Nil(t, r)
	assert.True(t, apperr.IsValidation(err))

	sales, err := f.store.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	last, _ := f.notes.Last()
	assert.Equal(t, "Empty Cart", last.Title)
}

func TestComplete_RejectsBadTender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "10", 5))
	_, err := f.register.Select(f.ids["A"], 1)
	require.NoError(t, err)

	_, err = f.register.Complete(ctx, Tender{Paid: dec("-1")})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.register.Complete(ctx, Tender{Method: "Cheque"})
	assert.True(t, apperr.IsValidation(err))

	assert.Equal(t, 1, f.register.Cart().Len())
}

// Scenario: the sale write fails; nothing persists and the cart survives.
func TestComplete_SaleWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "10", 5))
	_, err := f.register.Select(f.ids["A"], 2)
	require.NoError(t, err)

	f.store.failAddSale = apperr.Storage("add sale", errors.New("disk full"))
	r, err := f.register.Complete(ctx, Tender{Paid: dec("20")})
	assert.Nil(t, r)
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))

	assert.Equal(t, 1, f.register.Cart().Len())
	assert.Equal(t, 5, f.stock(t, "A"))

	sales, err := f.store.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	last, _ := f.notes.Last()
	assert.Equal(t, "Could not save sale. Try again.", last.Message)
	assert.Equal(t, notify.Error, last.Severity)
}

func TestComplete_DeductionFailsMidway_ThenRecover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("A", "10", 5), product("B", "20", 5), product("C", "30", 5))

	for _, name := range []string{"A", "B", "C"} {
		_, err := f.register.Select(f.ids[name], 1)
		require.NoError(t, err)
	}

	f.store.failDeductAt = 2
	f.store.deductErr = apperr.Storage("deduct stock", errors.New("database is locked"))

	r, err := f.register.Complete(ctx, Tender{Paid: dec("60")})
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
	require.NotNil(t, r, "the sale is recorded")
	assert.Greater(t, r.Sale.ID, int64(0))
	assert.Len(t, r.Movements, 1)
	assert.Len(t, r.Pending, 2)
	assert.True(t, f.register.Cart().IsEmpty())

	assert.Equal(t, 4, f.stock(t, "A"))
	assert.Equal(t, 5, f.stock(t, "B"))
	assert.Equal(t, 5, f.stock(t, "C"))

	pending, err := f.store.PendingDeductions(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Pending, pending)

	report, err := f.register.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{r.Sale.ID}, report.Sales)
	assert.Equal(t, 2, report.Applied)
	assert.Zero(t, report.Skipped)

	assert.Equal(t, 4, f.stock(t, "A"), "applied line not deducted twice")
	assert.Equal(t, 4, f.stock(t, "B"))
	assert.Equal(t, 4, f.stock(t, "C"))
	cached, _ := f.catalog.ByID(f.ids["C"])
	assert.Equal(t, 4, cached.Stock)

	again, err := f.register.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Sales)
	assert.Equal(t, 4, f.stock(t, "B"))
}

func TestUUIDRefs(t *testing.T) {
	a := UUIDRefs{}.NewRef()
	b := UUIDRefs{}.NewRef()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
