package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/apperr"
)

// WalkInCustomer is recorded when a sale is completed without a customer name.
const WalkInCustomer = "Walk-in Customer"

// PaymentMethod is how a sale was paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentCard   PaymentMethod = "Card"
	PaymentMobile PaymentMethod = "Mobile"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentMobile}

// ParsePaymentMethod matches s case-insensitively against PaymentMethods.
// An empty string selects Cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PaymentCash, nil
	}
	for _, m := range PaymentMethods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", apperr.Validation("paymentMethod", fmt.Sprintf("unknown payment method %q", s))
}

// CartLine is one product selection: a snapshot of name and price at the time
// it was added, plus the selected quantity.
type CartLine struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// LineTotal returns price × quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sale is a completed transaction. Items are decoupled from later product
// edits or deletion.
type Sale struct {
	ID            int64           `json:"id"`
	Ref           string          `json:"ref"`
	CustomerName  string          `json:"customerName"`
	Date          time.Time       `json:"date"`
	Items         []CartLine      `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	DueAmount     decimal.Decimal `json:"dueAmount"`
	ChangeAmount  decimal.Decimal `json:"changeAmount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	TotalItems    int             `json:"totalItems"`
}

// CustomerOrDefault returns the normalized name, or WalkInCustomer when blank.
func CustomerOrDefault(name string) string {
	name = NormalizeText(name)
	if name == "" {
		return WalkInCustomer
	}
	return name
}

// Settle computes the shortfall and surplus of a payment:
// due = max(0, total-paid), change = max(0, paid-total).
// At most one of the two is non-zero.
func Settle(total, paid decimal.Decimal) (due, change decimal.Decimal) {
	diff := paid.Sub(total)
	if diff.IsNegative() {
		return diff.Neg(), decimal.Zero
	}
	return decimal.Zero, diff
}

// SumTotals returns the sum of line totals.
func SumTotals(lines []CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// SumQuantities returns the sum of line quantities.
func SumQuantities(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
