package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "seed",
		Short:         "Load the demo catalog into an empty database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				n, err := s.app.Catalog.SeedDemo(s.ctx)
				if err != nil {
					return s.out.Fail("seed failed", err)
				}
				return s.out.Success(map[string]int{"added": n}, func(w io.Writer) {
					if n == 0 {
						fmt.Fprintf(w, "Catalog already has %d product(s); nothing seeded.\n", s.app.Catalog.Len())
						return
					}
					fmt.Fprintf(w, "Seeded %d demo product(s)\n", n)
				})
			})
		},
	}
}
