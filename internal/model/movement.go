package model

import "time"

// MovementStatus records what happened to one sale line's stock deduction.
type MovementStatus string

const (
	// MovementApplied means the product's stock was reduced.
	MovementApplied MovementStatus = "applied"

	// MovementSkipped means the product no longer existed; the sale stands.
	MovementSkipped MovementStatus = "skipped"
)

// StockMovement is a journal entry for one sale line. At most one exists per
// (SaleID, LineNo), which makes replaying a deduction idempotent.
type StockMovement struct {
	ID          int64          `json:"id"`
	SaleID      int64          `json:"saleId"`
	LineNo      int            `json:"lineNo"`
	ProductID   int64          `json:"productId"`
	Quantity    int            `json:"quantity"`
	StockBefore int            `json:"stockBefore"`
	StockAfter  int            `json:"stockAfter"`
	Status      MovementStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PendingDeduction is a recorded sale line without a journal entry: the sale
// persisted but its stock deduction has not been applied yet.
type PendingDeduction struct {
	SaleID    int64 `json:"saleId"`
	LineNo    int   `json:"lineNo"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// DeductStock returns max(0, current-quantity).
func DeductStock(current, quantity int) int {
	if next := current - quantity; next > 0 {
		return next
	}
	return 0
}
