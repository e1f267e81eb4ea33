package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/catalog"
	"github.com/roach88/offpos/internal/model"
)

// ProductOptions holds flags shared by product add and update.
type ProductOptions struct {
	*RootOptions
	Name        string
	Description string
	Price       string
	Stock       string
}

// ProductListOptions holds flags for product list.
type ProductListOptions struct {
	*RootOptions
	Search   string
	LowStock bool
}

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(newProductAddCommand(rootOpts))
	cmd.AddCommand(newProductListCommand(rootOpts))
	cmd.AddCommand(newProductUpdateCommand(rootOpts))
	cmd.AddCommand(newProductDeleteCommand(rootOpts))
	cmd.AddCommand(newProductImportCommand(rootOpts))
	return cmd
}

func productFlags(cmd *cobra.Command, opts *ProductOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "product name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "product description")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit price (>= 0)")
	cmd.Flags().StringVar(&opts.Stock, "stock", "", "units in stock (>= 0)")
}

func newProductAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Long: `Add a product to the catalog.

Example:
  offpos product add --name "Wireless Mouse" --price 850 --stock 24`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				draft, err := catalog.ParseDraft(opts.Name, opts.Description, opts.Price, opts.Stock)
				if err != nil {
					return s.out.Fail("invalid product", err)
				}
				p, err := s.app.Catalog.Add(s.ctx, draft)
				if err != nil {
					return s.out.Fail("failed to add product", err)
				}
				return s.out.Success(p, func(w io.Writer) {
					fmt.Fprintf(w, "Added product %d: %s (%s, %d in stock)\n",
						p.ID, p.Name, s.money(p.Price), p.Stock)
				})
			})
		},
	}
	productFlags(cmd, opts)
	return cmd
}

func newProductListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductListOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				var products []model.Product
				switch {
				case opts.LowStock:
					products = s.app.LowStock()
				case opts.Search != "":
					products = s.app.Catalog.Search(opts.Search)
				default:
					products = s.app.Catalog.All()
				}
				if products == nil {
					products = []model.Product{}
				}
				return s.out.Success(products, func(w io.Writer) {
					writeProducts(w, s, products)
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by name or description (case-insensitive)")
	cmd.Flags().BoolVar(&opts.LowStock, "low-stock", false, "only products below the low-stock threshold")
	return cmd
}

func writeProducts(w io.Writer, s *session, products []model.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	threshold := s.app.Config.POS.LowStockThreshold
	fmt.Fprintf(w, "%-5s %-28s %12s %6s  %s\n", "ID", "NAME", "PRICE", "STOCK", "STATUS")
	for _, p := range products {
		fmt.Fprintf(w, "%-5d %-28s %12s %6d  %s\n",
			p.ID, p.Name, s.money(p.Price), p.Stock, model.StockLevelOf(p.Stock, threshold).Label())
	}
}

func newProductUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Long: `Update a product. Fields without a flag keep their current value.

Example:
  offpos product update 3 --stock 40`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				id, err := parseID(args[0])
				if err != nil {
					return s.out.Fail("invalid product id", err)
				}
				current, ok := s.app.Catalog.ByID(id)
				if !ok {
					return s.out.Fail("failed to update product", apperr.NotFound("product", id))
				}

				name, desc := current.Name, current.Description
				price, stock := current.Price.String(), strconv.Itoa(current.Stock)
				if cmd.Flags().Changed("name") {
					name = opts.Name
				}
				if cmd.Flags().Changed("description") {
					desc = opts.Description
				}
				if cmd.Flags().Changed("price") {
					price = opts.Price
				}
				if cmd.Flags().Changed("stock") {
					stock = opts.Stock
				}

				draft, err := catalog.ParseDraft(name, desc, price, stock)
				if err != nil {
					return s.out.Fail("invalid product", err)
				}
				p, err := s.app.Catalog.Update(s.ctx, id, draft)
				if err != nil {
					return s.out.Fail("failed to update product", err)
				}
				return s.out.Success(p, func(w io.Writer) {
					fmt.Fprintf(w, "Updated product %d: %s (%s, %d in stock)\n",
						p.ID, p.Name, s.money(p.Price), p.Stock)
				})
			})
		},
	}
	productFlags(cmd, opts)
	return cmd
}

func newProductDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a product (past sales are kept)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				id, err := parseID(args[0])
				if err != nil {
					return s.out.Fail("invalid product id", err)
				}
				if err := s.app.Catalog.Delete(s.ctx, id); err != nil {
					return s.out.Fail("failed to delete product", err)
				}
				return s.out.Success(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted product %d\n", id)
				})
			})
		},
	}
}

func newProductImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a YAML, JSON or CUE file",
		Long: `Import products from a file. Every entry is validated before any
product is written.

Example:
  offpos product import ./products.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				drafts, err := catalog.ReadDrafts(args[0])
				if err != nil {
					return s.out.Fail("failed to read import file", err)
				}
				added, err := s.app.Catalog.Import(s.ctx, drafts)
				if err != nil {
					return s.out.Fail("failed to import products", err)
				}
				return s.out.Success(added, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d product(s)\n", len(added))
				})
			})
		},
	}
}

// parseID converts a command argument to a record id. Ids are always
// decimal.
func parseID(arg string) (int64, error) {
	id, err := model.ParseWholeNumber(arg)
	if err != nil || id < 1 {
		return 0, apperr.Validation("id", fmt.Sprintf("invalid id %q", arg))
	}
	return id, nil
}
