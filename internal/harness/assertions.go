package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// AssertionContext gives assertions access to the final state.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
	Result  *Result
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Step, event.Action, event.Outcome)
	}
	return buf.String()
}

// saleFields maps sale_field names to their snapshot values.
var saleFields = map[string]func(SaleState) string{
	"customer": func(s SaleState) string { return s.Customer },
	"method":   func(s SaleState) string { return s.Method },
	"total":    func(s SaleState) string { return s.Total },
	"paid":     func(s SaleState) string { return s.Paid },
	"due":      func(s SaleState) string { return s.Due },
	"change":   func(s SaleState) string { return s.Change },
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	h, trace := actx.Harness, actx.Result.Trace
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: trace}
	}

	switch a.Type {
	case AssertStock:
		want, err := cast.ToIntE(a.Expect)
		if err != nil {
			return fmt.Errorf("stock assertion: invalid expect %v: %w", a.Expect, err)
		}
		p, ok := h.catalog.ByID(a.Product)
		if !ok {
			return fail(fmt.Sprintf("product %d with stock %d", a.Product, want), "product not found")
		}
		if p.Stock != want {
			return fail(fmt.Sprintf("product %d stock %d", a.Product, want), fmt.Sprintf("stock %d", p.Stock))
		}

	case AssertSaleCount:
		if n := h.ledger.Len(); n != a.Count {
			return fail(fmt.Sprintf("%d sale(s)", a.Count), fmt.Sprintf("%d sale(s)", n))
		}

	case AssertCartCount:
		if n := h.cart.Len(); n != a.Count {
			return fail(fmt.Sprintf("%d cart line(s)", a.Count), fmt.Sprintf("%d cart line(s)", n))
		}

	case AssertPendingCount:
		pending, err := h.store.PendingDeductions(actx.Ctx)
		if err != nil {
			return fmt.Errorf("pending_count assertion: %w", err)
		}
		if len(pending) != a.Count {
			return fail(fmt.Sprintf("%d pending deduction(s)", a.Count), fmt.Sprintf("%d pending", len(pending)))
		}

	case AssertSaleField:
		want := cast.ToString(a.Expect)
		for _, s := range actx.Result.Sales {
			if s.ID != a.Sale {
				continue
			}
			if got := saleFields[a.Field](s); got != want {
				return fail(fmt.Sprintf("sale %d %s %q", a.Sale, a.Field, want), fmt.Sprintf("%q", got))
			}
			return nil
		}
		return fail(fmt.Sprintf("sale %d", a.Sale), "sale not found")
	}
	return nil
}
