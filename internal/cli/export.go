package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/app"
	"github.com/roach88/offpos/internal/ledger"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	As  string
	Dir string
}

// ExportResult is the export command payload.
type ExportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Sales  int    `json:"sales"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all sales to a file",
		Long: `Write every recorded sale to pos-sales-<YYYY-MM-DD>.<json|csv|xlsx>.

Exit codes:
  0 - File written
  1 - No sales to export
  2 - Command error (unknown format, unwritable directory)

Examples:
  offpos export
  offpos export --as xlsx --dir ./reports`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ledger.ParseFormat(opts.As)
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail("invalid export format", err)
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				path, err := s.app.Export(s.ctx, opts.Dir, f)
				if app.IsNothingToExport(err) {
					if writeErr := s.out.Error("NOTHING_TO_EXPORT", "No sales to export.", "", nil); writeErr != nil {
						return writeErr
					}
					exitErr := WrapExitError(ExitFailure, "nothing to export", err)
					exitErr.Reported = true
					return exitErr
				}
				if err != nil {
					return s.out.Fail("export failed", err)
				}
				result := ExportResult{Path: path, Format: string(f), Sales: s.app.Ledger.Len()}
				return s.out.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "Exported %d sale(s) to %s\n", result.Sales, result.Path)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", string(ledger.FormatJSON), "file format (json|csv|xlsx)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "output directory (default: pos.export_dir)")

	return cmd
}
