package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/offpos/internal/app"
	"github.com/roach88/offpos/internal/config"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/testutil"
)

// harness runs CLI commands against one temp database with a shared
// deterministic clock and ref generator.
type harness struct {
	t     *testing.T
	db    string
	dir   string
	clock *testutil.StepClock
	refs  *testutil.SequentialRefs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("OFFPOS_SEED_DEMO", "true")
	t.Setenv("OFFPOS_LOG_LEVEL", "error")
	dir := t.TempDir()
	return &harness{
		t:     t,
		db:    filepath.Join(dir, "offpos.db"),
		dir:   dir,
		clock: testutil.NewDefaultClock(),
		refs:  testutil.NewSequentialRefs("sale"),
	}
}

func (h *harness) command() *RootOptions {
	return &RootOptions{
		AppOptions: []app.Option{app.WithClock(h.clock), app.WithRefs(h.refs)},
	}
}

func (h *harness) runContext(ctx context.Context, args ...string) (string, string, error) {
	h.t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCommand(h.command())
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--db", h.db}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	return h.runContext(context.Background(), args...)
}

// runJSON runs a command with --format json and decodes its data into v.
func (h *harness) runJSON(v any, args ...string) (*CLIError, error) {
	h.t.Helper()
	out, _, err := h.run(append(args, "--format", "json")...)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if resp.Error == nil && v != nil {
		require.NoError(h.t, json.Unmarshal(resp.Data, v))
	}
	return resp.Error, err
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("product", "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnavailableDatabase(t *testing.T) {
	h := newHarness(t)
	h.db = "/nonexistent/dir/offpos.db"

	cliErr, err := h.runJSON(nil, "product", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, cliErr)
	assert.Equal(t, "STORAGE", cliErr.Code)
}

func TestProductList_SeededCatalog(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("product", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Wireless Mouse")
	assert.Contains(t, out, "৳850.00")
	assert.Contains(t, out, "Low Stock")

	var low []model.Product
	_, err = h.runJSON(&low, "product", "list", "--low-stock")
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 4, low[0].Stock)

	var found []model.Product
	_, err = h.runJSON(&found, "product", "list", "--search", "KEYBOARD")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Mechanical Keyboard", found[0].Name)
}

func TestProductAdd(t *testing.T) {
	h := newHarness(t)

	var p model.Product
	_, err := h.runJSON(&p, "product", "add", "--name", "  Headset ", "--price", "1999.50", "--stock", "6")
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, "Headset", p.Name)
	assert.Equal(t, "1999.5", p.Price.String())

	out, _, err := h.run("product", "list", "--search", "headset")
	require.NoError(t, err)
	assert.Contains(t, out, "৳1999.50")
}

func TestProductAdd_Invalid(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("product", "add", "--name", "Headset", "--price", "abc", "--stock", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "enter a valid price")

	cliErr, err := h.runJSON(nil, "product", "add", "--name", "", "--price", "1", "--stock", "1")
	require.Error(t, err)
	require.NotNil(t, cliErr)
	assert.Equal(t, "VALIDATION", cliErr.Code)
	assert.Equal(t, "name", cliErr.Field)
}

func TestProductUpdate_KeepsUnchangedFields(t *testing.T) {
	h := newHarness(t)

	var p model.Product
	_, err := h.runJSON(&p, "product", "update", "1", "--stock", "40")
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)
	assert.Equal(t, "Wireless Mouse", p.Name)
	assert.Equal(t, "850", p.Price.String())
	assert.True(t, p.UpdatedAt.After(p.CreatedAt))
}

func TestProductUpdateAndDelete_Unknown(t *testing.T) {
	h := newHarness(t)

	cliErr, err := h.runJSON(nil, "product", "update", "99", "--stock", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "NOT_FOUND", cliErr.Code)

	_, _, err = h.run("product", "delete", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = h.run("product", "delete", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestProductDelete(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("product", "delete", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted product 8")

	var all []model.Product
	_, err = h.runJSON(&all, "product", "list")
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestProductDelete_DecimalID(t *testing.T) {
	h := newHarness(t)

	for _, name := range []string{"Headset", "Speaker"} {
		_, _, err := h.run("product", "add", "--name", name, "--price", "100", "--stock", "5")
		require.NoError(t, err)
	}

	out, _, err := h.run("product", "delete", "010")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted product 10")

	var all []model.Product
	_, err = h.runJSON(&all, "product", "list")
	require.NoError(t, err)
	require.Len(t, all, 9)
	assert.Equal(t, int64(8), all[7].ID)
	assert.Equal(t, "Headset", all[8].Name)

	for _, arg := range []string{"0x10", "0o10", "1_0"} {
		_, _, err = h.run("product", "delete", arg)
		require.Error(t, err, arg)
		assert.Equal(t, ExitFailure, GetExitCode(err), arg)
	}
	_, err = h.runJSON(&all, "product", "list")
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

func TestProductImport(t *testing.T) {
	h := newHarness(t)

	good := filepath.Join(h.dir, "products.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`products:
  - name: Headset
    price: 1999.5
    stock: 6
  - name: Mouse Pad
    description: XL cloth
    price: 250
    stock: 40
`), 0o600))

	out, _, err := h.run("product", "import", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 product(s)")

	bad := filepath.Join(h.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("products:\n  - name: Broken\n    price: -1\n    stock: 1\n"), 0o600))

	_, _, err = h.run("product", "import", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var all []model.Product
	_, err = h.runJSON(&all, "product", "list")
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestSale_Complete(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run("sale", "--item", "1:2", "--paid", "2000", "--customer", "Rahim")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer: Rahim")
	assert.Contains(t, out, "Total:  ৳1700.00 (2 items)")
	assert.Contains(t, out, "Change: ৳300.00")
	assert.Contains(t, errOut, "[success] Added to cart")
	assert.Contains(t, errOut, "[success] Sale Complete!: Rahim: ৳1700.00 via Cash")

	var products []model.Product
	_, err = h.runJSON(&products, "product", "list", "--search", "wireless")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 22, products[0].Stock)
}

func TestSale_JSONReceipt(t *testing.T) {
	h := newHarness(t)

	var receipt struct {
		Sale      model.Sale            `json:"sale"`
		Movements []model.StockMovement `json:"movements"`
		Warning   string                `json:"warning"`
	}
	_, err := h.runJSON(&receipt, "sale", "--item", "2", "--item", "3:1", "--method", "CARD")
	require.NoError(t, err)

	assert.Equal(t, "sale-0001", receipt.Sale.Ref)
	assert.Equal(t, model.WalkInCustomer, receipt.Sale.CustomerName)
	assert.Equal(t, model.PaymentCard, receipt.Sale.PaymentMethod)
	assert.Equal(t, "4650", receipt.Sale.TotalAmount.String())
	assert.True(t, receipt.Sale.DueAmount.IsZero())
	assert.Len(t, receipt.Movements, 2)
	assert.Empty(t, receipt.Warning)
}

func TestSale_PartialPaymentLeavesDue(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("sale", "--item", "5", "--paid", "600")
	require.NoError(t, err)
	assert.Contains(t, out, "Due:    ৳50.00")
	assert.NotContains(t, out, "Change:")
}

func TestSale_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"insufficient_stock", []string{"--item", "4:5"}, "Insufficient Stock"},
		{"unknown_product", []string{"--item", "42"}, "Product Not Found"},
		{"bad_item", []string{"--item", "abc"}, "invalid product id"},
		{"hex_id", []string{"--item", "0x1"}, "invalid product id"},
		{"negative_tender", []string{"--item", "1", "--paid", "-5"}, "amount paid cannot be negative"},
		{"bad_method", []string{"--item", "1", "--method", "cheque"}, "unknown payment method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, errOut, err := h.run(append([]string{"sale"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, errOut, tt.wantErr)

			var sales []model.Sale
			_, err = h.runJSON(&sales, "sales", "list")
			require.NoError(t, err)
			assert.Empty(t, sales)
		})
	}
}

func TestSale_QuantityIsDecimal(t *testing.T) {
	tests := []struct {
		item string
		want int
	}{
		{"5:010", 10},
		{"5:08", 8},
		{"5:0", 1},
		{"5:-3", 1},
		{"5:many", 1},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			h := newHarness(t)

			var receipt struct {
				Sale model.Sale `json:"sale"`
			}
			_, err := h.runJSON(&receipt, "sale", "--item", tt.item)
			require.NoError(t, err)
			require.Len(t, receipt.Sale.Items, 1)
			assert.Equal(t, tt.want, receipt.Sale.Items[0].Quantity)
			assert.Equal(t, tt.want, receipt.Sale.TotalItems)

			var found []model.Product
			_, err = h.runJSON(&found, "product", "list", "--search", "Laptop Stand")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, 30-tt.want, found[0].Stock)
		})
	}
}

func TestSale_RequiresItem(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("sale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestSalesListAndShow(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("sale", "--item", "1:2", "--customer", "Rahim")
	require.NoError(t, err)
	_, _, err = h.run("sale", "--item", "6", "--customer", "Karim")
	require.NoError(t, err)

	var sales []model.Sale
	_, err = h.runJSON(&sales, "sales", "list")
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "Karim", sales[0].CustomerName, "newest first")

	_, err = h.runJSON(&sales, "sales", "list", "--customer", "rah")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "Rahim", sales[0].CustomerName)

	out, _, err := h.run("sales", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Sale #0001")
	assert.Contains(t, out, "line 0: product 1 applied (24 -> 22)")

	_, _, err = h.run("sales", "show", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSalesList_DateWindow(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("sale", "--item", "1")
	require.NoError(t, err)

	var sales []model.Sale
	_, err = h.runJSON(&sales, "sales", "list", "--to", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, sales, 1, "a bare --to date includes the whole day")

	_, err = h.runJSON(&sales, "sales", "list", "--from", "January 2, 2024")
	require.NoError(t, err)
	assert.Empty(t, sales)

	_, _, err = h.run("sales", "list", "--from", "someday")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = h.run("sales", "list", "--from", "2024-02-01", "--to", "2024-01-01")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("sale", "--item", "1:2")
	require.NoError(t, err)
	_, _, err = h.run("sale", "--item", "5", "--paid", "600")
	require.NoError(t, err)

	var result struct {
		Sales struct {
			Revenue string `json:"revenue"`
			Count   int    `json:"count"`
			Items   int    `json:"items"`
			Due     string `json:"due"`
			Median  string `json:"median"`
		} `json:"sales"`
		Products int             `json:"products"`
		LowStock []model.Product `json:"lowStock"`
	}
	_, err = h.runJSON(&result, "stats")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sales.Count)
	assert.Equal(t, 3, result.Sales.Items)
	assert.Equal(t, "2350", result.Sales.Revenue)
	assert.Equal(t, "50", result.Sales.Due)
	assert.Equal(t, "1175", result.Sales.Median)
	assert.Equal(t, 8, result.Products)
	assert.Len(t, result.LowStock, 1)

	out, _, err := h.run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue:        ৳2350.00")
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	outDir := t.TempDir()

	_, errOut, err := h.run("export", "--dir", outDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "No sales to export")

	_, _, err = h.run("sale", "--item", "1")
	require.NoError(t, err)

	for _, format := range []string{"json", "csv", "xlsx"} {
		t.Run(format, func(t *testing.T) {
			var result ExportResult
			_, err := h.runJSON(&result, "export", "--as", format, "--dir", outDir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(outDir, "pos-sales-2024-01-01."+format), result.Path)
			assert.Equal(t, 1, result.Sales)

			info, err := os.Stat(result.Path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	_, _, err = h.run("export", "--as", "pdf")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecover_NothingPending(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("recover")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending stock deductions")

	var result RecoverResult
	_, err = h.runJSON(&result, "recover")
	require.NoError(t, err)
	assert.Empty(t, result.Sales)
	assert.Zero(t, result.Pending)
}

func TestSeed(t *testing.T) {
	h := newHarness(t)
	t.Setenv("OFFPOS_SEED_DEMO", "false")

	out, _, err := h.run("product", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No products found.")

	out, _, err = h.run("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 8 demo product(s)")

	out, _, err = h.run("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")
}

func TestDaemon_InvalidSchedule(t *testing.T) {
	h := newHarness(t)
	t.Setenv("OFFPOS_RECOVER_SCHEDULE", "whenever")

	_, _, err := h.run("daemon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDaemon_StopsWithContext(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out, _, err := h.runContext(ctx, "daemon")
	require.NoError(t, err)
	assert.Contains(t, out, "Scheduler started")
}
