package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
)

// StatsResult is the stats command payload.
type StatsResult struct {
	Sales    ledger.Stats    `json:"sales"`
	Products int             `json:"products"`
	LowStock []model.Product `json:"lowStock"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SalesFilterOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Summarize revenue, tickets and low stock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				from, to, err := opts.window()
				if err != nil {
					return s.out.Fail("invalid filter", err)
				}
				low := s.app.LowStock()
				if low == nil {
					low = []model.Product{}
				}
				result := StatsResult{
					Sales:    ledger.Summarize(s.app.Ledger.Filter(opts.Customer, from, to)),
					Products: s.app.Catalog.Len(),
					LowStock: low,
				}
				return s.out.Success(result, func(w io.Writer) {
					st := result.Sales
					fmt.Fprintf(w, "Sales:          %d\n", st.Count)
					fmt.Fprintf(w, "Revenue:        %s\n", s.money(st.Revenue))
					fmt.Fprintf(w, "Items sold:     %d\n", st.Items)
					fmt.Fprintf(w, "Outstanding:    %s\n", s.money(st.Due))
					fmt.Fprintf(w, "Average ticket: %s\n", s.money(st.Average))
					fmt.Fprintf(w, "Median ticket:  %s\n", s.money(st.Median))
					fmt.Fprintf(w, "Products:       %d\n", result.Products)
					for _, p := range result.LowStock {
						fmt.Fprintf(w, "  %s: %s (%d left)\n",
							model.StockLevelOf(p.Stock, s.app.Config.POS.LowStockThreshold).Label(), p.Name, p.Stock)
					}
				})
			})
		},
	}
	filterFlags(cmd, opts)
	return cmd
}
