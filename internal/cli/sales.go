package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

// SalesFilterOptions holds the date and customer filters shared by sales
// list and stats.
type SalesFilterOptions struct {
	*RootOptions
	Customer string
	From     string
	To       string
}

func filterFlags(cmd *cobra.Command, opts *SalesFilterOptions) {
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer name contains (case-insensitive)")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest sale date, inclusive (any common date format)")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest sale date; a bare date includes the whole day")
}

// window parses --from and --to into a half-open [from, to) range in UTC.
func (o *SalesFilterOptions) window() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if o.From != "" {
		if from, err = dateparse.ParseIn(o.From, time.UTC); err != nil {
			return from, to, apperr.Validation("from", fmt.Sprintf("unrecognised date %q", o.From))
		}
	}
	if o.To != "" {
		if to, err = dateparse.ParseIn(o.To, time.UTC); err != nil {
			return from, to, apperr.Validation("to", fmt.Sprintf("unrecognised date %q", o.To))
		}
		if to.Equal(to.Truncate(24 * time.Hour)) {
			to = to.Add(24 * time.Hour)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, apperr.Validation("to", "--to must be after --from")
	}
	return from.UTC(), to.UTC(), nil
}

// NewSalesCommand creates the sales command group.
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Browse recorded sales",
	}
	cmd.AddCommand(newSalesListCommand(rootOpts))
	cmd.AddCommand(newSalesShowCommand(rootOpts))
	return cmd
}

func newSalesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SalesFilterOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sales, newest first",
		Long: `List sales, newest first.

Examples:
  offpos sales list --from 2024-03-01 --to 2024-03-31
  offpos sales list --customer rahim --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				from, to, err := opts.window()
				if err != nil {
					return s.out.Fail("invalid filter", err)
				}
				sales := s.app.Ledger.Filter(opts.Customer, from, to)
				if sales == nil {
					sales = []model.Sale{}
				}
				return s.out.Success(sales, func(w io.Writer) {
					writeSales(w, s, sales)
				})
			})
		},
	}
	filterFlags(cmd, opts)
	return cmd
}

func writeSales(w io.Writer, s *session, sales []model.Sale) {
	if len(sales) == 0 {
		fmt.Fprintln(w, "No sales found.")
		return
	}
	fmt.Fprintf(w, "%-7s %-24s %-24s %14s %14s  %s\n", "SALE", "DATE", "CUSTOMER", "TOTAL", "DUE", "METHOD")
	for _, sale := range sales {
		fmt.Fprintf(w, "%-7s %-24s %-24s %14s %14s  %s\n",
			model.SaleRef(sale.ID), model.FormatTimestamp(sale.Date), sale.CustomerName,
			s.money(sale.TotalAmount), s.money(sale.DueAmount), sale.PaymentMethod)
	}
}

func newSalesShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one sale with its stock movements",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				id, err := parseID(args[0])
				if err != nil {
					return s.out.Fail("invalid sale id", err)
				}
				sale, err := s.app.Store.GetSale(s.ctx, id)
				if err != nil {
					return s.out.Fail("failed to load sale", err)
				}
				movements, err := s.app.Store.ListMovements(s.ctx, id)
				if err != nil {
					return s.out.Fail("failed to load stock movements", err)
				}

				data := struct {
					Sale      model.Sale            `json:"sale"`
					Movements []model.StockMovement `json:"movements"`
				}{sale, movements}
				return s.out.Success(data, func(w io.Writer) {
					writeSale(w, s, sale)
					for _, m := range movements {
						fmt.Fprintf(w, "  line %d: product %d %s (%d -> %d)\n",
							m.LineNo, m.ProductID, m.Status, m.StockBefore, m.StockAfter)
					}
				})
			})
		},
	}
}
