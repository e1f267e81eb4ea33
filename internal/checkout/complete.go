package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
)

// Tender is the payment side of a sale.
type Tender struct {
	CustomerName string
	Paid         decimal.Decimal
	Method       model.PaymentMethod
}

// Receipt is the outcome of Complete.
type Receipt struct {
	Sale      model.Sale            `json:"sale"`
	Movements []model.StockMovement `json:"movements"`

	// Skipped lists product ids whose line was skipped because the product
	// no longer exists.
	Skipped []int64 `json:"skipped,omitempty"`

	// Pending lists lines left without a journal entry after a storage
	// failure. Recover applies them.
	Pending []model.PendingDeduction `json:"pending,omitempty"`

	// Warning is a PARTIAL_COMMIT error when Skipped is not empty.
	Warning error `json:"-"`
}

// Complete records the cart as a sale and deducts its stock.
//
// Errors:
//   - VALIDATION: empty cart, negative tender or unknown payment method;
//     nothing is written
//   - STORAGE from the sale write: nothing is persisted, cart intact
//   - STORAGE from a deduction (op "deduct stock"): the sale is recorded and
//     returned in the receipt, remaining lines are pending, cart cleared
//
// Skipped lines do not produce an error; see Receipt.Warning.
func (r *Register) Complete(ctx context.Context, t Tender) (*Receipt, error) {
	if r.cart.IsEmpty() {
		r.fail("Empty Cart", "Please add products first.", notify.Error)
		return nil, apperr.Validation("cart", "cart is empty")
	}
	if t.Paid.IsNegative() {
		r.fail("Invalid Amount", "Amount paid cannot be negative.", notify.Error)
		return nil, apperr.Validation("paidAmount", "amount paid cannot be negative")
	}
	method, err := model.ParsePaymentMethod(string(t.Method))
	if err != nil {
		r.fail("Invalid Payment Method", err.Error(), notify.Error)
		return nil, err
	}

	lines := r.cart.Snapshot()
	total := model.SumTotals(lines)
	due, change := model.Settle(total, t.Paid)

	sale := model.Sale{
		Ref:           r.refs.NewRef(),
		CustomerName:  model.CustomerOrDefault(t.CustomerName),
		Date:          r.clock.Now(),
		Items:         lines,
		TotalAmount:   total,
		PaidAmount:    t.Paid,
		DueAmount:     due,
		ChangeAmount:  change,
		PaymentMethod: method,
		TotalItems:    model.SumQuantities(lines),
	}

	id, err := r.store.AddSale(ctx, sale)
	if err != nil {
		r.log.Error("sale not recorded", zap.String("ref", sale.Ref), zap.Error(err))
		r.fail("Error", "Could not save sale. Try again.", notify.Error)
		return nil, fmt.Errorf("complete sale: %w", err)
	}
	sale.ID = id

	log := r.log.With(zap.Int64("sale_id", id), zap.String("ref", sale.Ref))
	log.Info("sale recorded",
		zap.String("total", model.FormatAmount(total)),
		zap.Int("lines", len(lines)))

	receipt := &Receipt{Sale: sale}
	deductErr := r.deduct(ctx, receipt)

	r.reload(ctx)
	r.cart.Clear()

	if len(receipt.Skipped) > 0 {
		receipt.Warning = apperr.PartialCommit(id, receipt.Skipped)
		log.Warn("stock deduction skipped", zap.Int64s("products", receipt.Skipped))
	}

	if deductErr != nil {
		log.Error("stock deduction incomplete",
			zap.Int("pending", len(receipt.Pending)), zap.Error(deductErr))
		r.notifier.Notify(notify.Notification{
			Title:    "Stock Not Updated",
			Message:  fmt.Sprintf("Sale %s saved, but %d line(s) still need a stock update.", model.SaleRef(id), len(receipt.Pending)),
			Severity: notify.Warning,
		})
		return receipt, fmt.Errorf("complete sale %d: %w", id, deductErr)
	}

	r.notifier.Notify(notify.Notification{
		Title:    "Sale Complete!",
		Message:  fmt.Sprintf("%s: %s via %s", sale.CustomerName, r.money(total), method),
		Severity: notify.Success,
		Duration: notify.SaleDuration,
	})
	if receipt.Warning != nil {
		r.notifier.Notify(notify.Notification{
			Title:    "Stock Not Updated",
			Message:  fmt.Sprintf("%d product(s) in sale %s no longer exist.", len(receipt.Skipped), model.SaleRef(id)),
			Severity: notify.Warning,
		})
	}
	return receipt, nil
}

// deduct applies every line of the receipt's sale in order and stops at the
// first storage failure, recording the remaining lines as pending.
func (r *Register) deduct(ctx context.Context, receipt *Receipt) error {
	sale := receipt.Sale
	for i, item := range sale.Items {
		d := model.PendingDeduction{
			SaleID:    sale.ID,
			LineNo:    i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		m, err := r.store.ApplyStockDeduction(ctx, d, r.clock.Now())
		if err != nil {
			for j := i; j < len(sale.Items); j++ {
				receipt.Pending = append(receipt.Pending, model.PendingDeduction{
					SaleID:    sale.ID,
					LineNo:    j,
					ProductID: sale.Items[j].ProductID,
					Quantity:  sale.Items[j].Quantity,
				})
			}
			return err
		}
		receipt.Movements = append(receipt.Movements, m)
		if m.Status == model.MovementSkipped {
			receipt.Skipped = append(receipt.Skipped, m.ProductID)
		}
	}
	return nil
}

// reload refreshes catalog and ledger. The sale is already durable, so a
// failure here is logged rather than returned.
func (r *Register) reload(ctx context.Context) {
	if err := r.catalog.Load(ctx); err != nil {
		r.log.Warn("catalog reload failed", zap.Error(err))
	}
	if err := r.ledger.Load(ctx); err != nil {
		r.log.Warn("ledger reload failed", zap.Error(err))
	}
}

// RecoveryReport summarizes a Recover run.
type RecoveryReport struct {
	Sales   []int64 `json:"sales"`
	Applied int     `json:"applied"`
	Skipped int     `json:"skipped"`
}

// Recover replays every pending deduction. Safe to run any number of
// times: lines already journaled are never deducted again. Catalog and
// ledger are reloaded afterwards.
func (r *Register) Recover(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	pending, err := r.store.PendingDeductions(ctx)
	if err != nil {
		return report, fmt.Errorf("recover: %w", err)
	}
	if len(pending) == 0 {
		r.log.Debug("no pending deductions")
		return report, nil
	}

	seen := make(map[int64]bool)
	for _, d := range pending {
		m, err := r.store.ApplyStockDeduction(ctx, d, r.clock.Now())
		if err != nil {
			r.reload(ctx)
			return report, fmt.Errorf("recover sale %d line %d: %w", d.SaleID, d.LineNo, err)
		}
		if !seen[d.SaleID] {
			seen[d.SaleID] = true
			report.Sales = append(report.Sales, d.SaleID)
		}
		if m.Status == model.MovementSkipped {
			report.Skipped++
		} else {
			report.Applied++
		}
	}

	r.reload(ctx)
	r.log.Info("pending deductions recovered",
		zap.Int("sales", len(report.Sales)),
		zap.Int("applied", report.Applied),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
