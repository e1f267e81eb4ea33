package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/cart"
	"github.com/roach88/offpos/internal/checkout"
	"github.com/roach88/offpos/internal/model"
)

// SaleOptions holds flags for the sale command.
type SaleOptions struct {
	*RootOptions
	Items    []string
	Paid     string
	Customer string
	Method   string
}

// receiptView is the JSON form of a checkout receipt.
type receiptView struct {
	*checkout.Receipt
	Warning string `json:"warning,omitempty"`
}

// NewSaleCommand creates the sale command.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Complete a sale",
		Long: `Put the given items in the cart and complete the sale.

Each --item is a product id with an optional quantity (id[:qty], default 1).
Items are checked against stock in order; the first rejected item aborts the
sale. Without --paid the exact total is tendered.

Exit codes:
  0 - Sale recorded (warnings for deleted products are printed)
  1 - Sale rejected (unknown product, insufficient stock, invalid tender)
  2 - Storage error (stock deduction left pending; run "offpos recover")

Examples:
  offpos sale --item 1:2 --item 5 --paid 3000 --customer "Rahim"
  offpos sale --item 3 --method card --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				return runSale(cmd, opts, s)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Items, "item", "i", nil, "product id[:qty] (repeatable)")
	cmd.Flags().StringVar(&opts.Paid, "paid", "", "amount tendered (default: exact total)")
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer name (default: Walk-in Customer)")
	cmd.Flags().StringVar(&opts.Method, "method", string(model.PaymentCash), "payment method (cash|card|mobile)")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func runSale(cmd *cobra.Command, opts *SaleOptions, s *session) error {
	reg := s.app.Register
	for _, item := range opts.Items {
		id, qty, err := parseItem(item)
		if err != nil {
			return s.out.Fail("invalid item", err)
		}
		if _, err := reg.Select(id, qty); err != nil {
			return s.out.Fail("item rejected", err)
		}
	}

	paid := reg.Cart().Total()
	if cmd.Flags().Changed("paid") {
		var err error
		if paid, err = checkout.ParseTender(opts.Paid); err != nil {
			return s.out.Fail("invalid tender", err)
		}
	}
	s.out.VerboseLog("tender %s against %s", s.money(paid), s.money(reg.Cart().Total()))

	receipt, err := s.app.Complete(s.ctx, checkout.Tender{
		CustomerName: opts.Customer,
		Paid:         paid,
		Method:       model.PaymentMethod(opts.Method),
	})
	if err != nil {
		if receipt != nil && opts.Format != "json" {
			writeSale(s.out.Writer, s, receipt.Sale)
			fmt.Fprintf(s.out.Writer, "%d line(s) pending stock update; run \"offpos recover\"\n", len(receipt.Pending))
		}
		return s.out.Fail("sale not completed", err)
	}

	view := receiptView{Receipt: receipt}
	if receipt.Warning != nil {
		view.Warning = receipt.Warning.Error()
	}
	return s.out.Success(view, func(w io.Writer) {
		writeSale(w, s, receipt.Sale)
		if receipt.Warning != nil {
			fmt.Fprintf(w, "Warning: stock not updated for deleted product(s) %v\n", receipt.Skipped)
		}
	})
}

// parseItem parses "id" or "id:qty". A quantity that is not a positive
// decimal number counts as 1.
func parseItem(item string) (int64, int, error) {
	idText, qtyText, hasQty := strings.Cut(strings.TrimSpace(item), ":")
	id, err := parseID(idText)
	if err != nil {
		return 0, 0, apperr.Validation("item", fmt.Sprintf("invalid product id in %q", item))
	}
	if !hasQty {
		return id, 1, nil
	}
	return id, cart.ParseQuantity(qtyText), nil
}

// writeSale renders a sale as a receipt.
func writeSale(w io.Writer, s *session, sale model.Sale) {
	fmt.Fprintf(w, "Sale %s  %s\n", model.SaleRef(sale.ID), model.FormatTimestamp(sale.Date))
	fmt.Fprintf(w, "Customer: %s\n", sale.CustomerName)
	for _, l := range sale.Items {
		fmt.Fprintf(w, "  %-28s %4d x %12s %14s\n", l.Name, l.Quantity, s.money(l.Price), s.money(l.Total))
	}
	fmt.Fprintf(w, "Total:  %s (%d items)\n", s.money(sale.TotalAmount), sale.TotalItems)
	fmt.Fprintf(w, "Paid:   %s via %s\n", s.money(sale.PaidAmount), sale.PaymentMethod)
	if sale.DueAmount.IsPositive() {
		fmt.Fprintf(w, "Due:    %s\n", s.money(sale.DueAmount))
	}
	if sale.ChangeAmount.IsPositive() {
		fmt.Fprintf(w, "Change: %s\n", s.money(sale.ChangeAmount))
	}
}
