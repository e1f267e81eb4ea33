package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RecoverResult is the recover command payload.
type RecoverResult struct {
	Sales   []int64 `json:"sales"`
	Applied int     `json:"applied"`
	Skipped int     `json:"skipped"`
	Pending int     `json:"pending"`
}

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Apply stock deductions left pending by interrupted sales",
		Long: `Apply the stock deductions of recorded sales that have no journal entry
yet, for example after a crash between saving a sale and updating stock.
Applied lines are never deducted twice.

Opening the database already runs recovery; this command reports what is
left and retries.

Exit codes:
  0 - Nothing pending
  2 - Command error (storage failure, lines still pending)

Examples:
  offpos recover
  offpos recover --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				report, err := s.app.Recover(s.ctx)
				if err != nil {
					return s.out.Fail("recovery failed", err)
				}
				pending, err := s.app.Store.PendingDeductions(s.ctx)
				if err != nil {
					return s.out.Fail("failed to list pending deductions", err)
				}

				result := RecoverResult{
					Sales:   report.Sales,
					Applied: report.Applied,
					Skipped: report.Skipped,
					Pending: len(pending),
				}
				if result.Sales == nil {
					result.Sales = []int64{}
				}
				if err := s.out.Success(result, func(w io.Writer) {
					writeRecover(w, result, s.out.Verbose)
				}); err != nil {
					return err
				}
				if result.Pending > 0 {
					return NewExitError(ExitCommandError, fmt.Sprintf("%d deduction(s) still pending", result.Pending))
				}
				return nil
			})
		},
	}
}

func writeRecover(w io.Writer, r RecoverResult, verbose bool) {
	if len(r.Sales) == 0 && r.Pending == 0 {
		fmt.Fprintln(w, "✓ No pending stock deductions.")
		return
	}
	fmt.Fprintf(w, "Recovered %d sale(s): %d line(s) applied, %d skipped\n",
		len(r.Sales), r.Applied, r.Skipped)
	if verbose {
		for _, id := range r.Sales {
			fmt.Fprintf(w, "  sale %d\n", id)
		}
	}
	if r.Pending > 0 {
		fmt.Fprintf(w, "✗ %d line(s) still pending\n", r.Pending)
		return
	}
	fmt.Fprintln(w, "✓ All sales deducted")
}
