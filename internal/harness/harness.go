package harness

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/cart"
	"github.com/roach88/offpos/internal/catalog"
	"github.com/roach88/offpos/internal/checkout"
	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/store"
	"github.com/roach88/offpos/internal/testutil"
)

// Harness holds the components a scenario drives.
type Harness struct {
	store    *store.Store
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	cart     *cart.Cart
	register *checkout.Register
	notes    *notify.Recorder
}

// Run executes a scenario in a fresh in-memory database.
//
// Execution flow:
//  1. Open an in-memory store and wire catalog, ledger and register
//  2. Execute flow steps, checking expect clauses
//  3. Reload catalog and ledger into the result
//  4. Evaluate assertions
//
// A returned error means the harness itself failed; scenario failures are
// reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clk := testutil.NewDefaultClock()
	log := zap.NewNop()
	h := &Harness{
		store:   st,
		catalog: catalog.New(st, clk, log),
		ledger:  ledger.New(st, log),
		cart:    cart.New(),
		notes:   &notify.Recorder{},
	}
	h.register = checkout.New(checkout.Deps{
		Store:    st,
		Catalog:  h.catalog,
		Ledger:   h.ledger,
		Cart:     h.cart,
		Clock:    clk,
		Notifier: h.notes,
		Refs:     testutil.NewSequentialRefs("sale"),
		Logger:   log,
	})

	result := NewResult()
	for i, step := range scenario.Flow {
		event := h.execute(ctx, i, step)
		result.Trace = append(result.Trace, event)
		checkExpect(result, event, step.Expect)
	}

	if err := h.catalog.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load final catalog: %w", err)
	}
	if err := h.ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load final ledger: %w", err)
	}
	for _, p := range h.catalog.All() {
		result.Products = append(result.Products, productState(p))
	}
	for _, s := range h.ledger.All() {
		result.Sales = append(result.Sales, saleState(s))
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h, Result: result}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and records its outcome and notifications.
func (h *Harness) execute(ctx context.Context, index int, step Step) TraceEvent {
	event := TraceEvent{Step: index, Action: step.Action}
	seen := len(h.notes.All())

	var err error
	switch step.Action {
	case ActionAddProduct:
		var draft model.ProductDraft
		draft, err = catalog.ParseDraft(
			cast.ToString(step.Args["name"]),
			cast.ToString(step.Args["description"]),
			cast.ToString(step.Args["price"]),
			cast.ToString(step.Args["stock"]),
		)
		if err == nil {
			var p model.Product
			if p, err = h.catalog.Add(ctx, draft); err == nil {
				event.Product = p.ID
			}
		}

	case ActionDeleteProduct:
		err = h.catalog.Delete(ctx, cast.ToInt64(step.Args["product"]))

	case ActionSelect:
		_, err = h.register.Select(cast.ToInt64(step.Args["product"]), cast.ToInt(step.Args["quantity"]))

	case ActionRemove:
		id := cast.ToInt64(step.Args["product"])
		if !h.register.Remove(id) {
			err = apperr.NotFound("cart line", id)
		}

	case ActionComplete:
		err = h.complete(ctx, step.Args, &event)

	case ActionRecover:
		var report checkout.RecoveryReport
		if report, err = h.register.Recover(ctx); err == nil {
			event.Recovered = report.Applied
		}
	}

	event.Outcome = outcomeOf(err)
	for _, n := range h.notes.All()[seen:] {
		event.Notifications = append(event.Notifications, n.Title)
	}
	return event
}

func (h *Harness) complete(ctx context.Context, args map[string]any, event *TraceEvent) error {
	paid := h.cart.Total()
	if v, ok := args["paid"]; ok {
		var err error
		if paid, err = checkout.ParseTender(cast.ToString(v)); err != nil {
			return err
		}
	}

	receipt, err := h.register.Complete(ctx, checkout.Tender{
		CustomerName: cast.ToString(args["customer"]),
		Paid:         paid,
		Method:       model.PaymentMethod(cast.ToString(args["method"])),
	})
	if receipt != nil {
		event.Sale = receipt.Sale.ID
		if receipt.Warning != nil {
			event.Warning = string(apperr.CodeOf(receipt.Warning))
		}
	}
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := apperr.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

// checkExpect compares a step's outcome with its expect clause. A step
// without one must succeed.
func checkExpect(result *Result, event TraceEvent, expect *Expect) {
	want := Expect{Outcome: OutcomeOK}
	if expect != nil {
		want = *expect
	}

	if event.Outcome != want.Outcome {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s",
			event.Step, event.Action, want.Outcome, event.Outcome))
	}
	if want.Notification == "" {
		return
	}
	for _, title := range event.Notifications {
		if title == want.Notification {
			return
		}
	}
	result.AddError(fmt.Sprintf("flow[%d] %s: expected notification %q, got %v",
		event.Step, event.Action, want.Notification, event.Notifications))
}
