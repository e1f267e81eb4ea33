package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	excelize "github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/model"
)

// ErrNothingToExport is returned by ExportFile when the ledger is empty.
var ErrNothingToExport = errors.New("no sales to export")

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (must be json, csv or xlsx)", s)
	}
}

// ExportFilename returns the JSON export name for day t:
// pos-sales-YYYY-MM-DD.json (UTC date).
func ExportFilename(t time.Time) string {
	return FilenameFor(t, FormatJSON)
}

// FilenameFor returns the export name for day t in format f.
func FilenameFor(t time.Time, f Format) string {
	return fmt.Sprintf("pos-sales-%s.%s", t.UTC().Format("2006-01-02"), f)
}

// amount renders money as a JSON number with two decimals.
type amount = json.Number

func toAmount(d decimal.Decimal) amount {
	return json.Number(d.StringFixed(2))
}

type exportLine struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    amount `json:"price"`
	Quantity int    `json:"quantity"`
	Total    amount `json:"total"`
}

type exportSale struct {
	ID            int64        `json:"id"`
	Ref           string       `json:"ref"`
	CustomerName  string       `json:"customerName"`
	Date          string       `json:"date"`
	Items         []exportLine `json:"items"`
	TotalAmount   amount       `json:"totalAmount"`
	PaidAmount    amount       `json:"paidAmount"`
	DueAmount     amount       `json:"dueAmount"`
	ChangeAmount  amount       `json:"changeAmount"`
	PaymentMethod string       `json:"paymentMethod"`
	TotalItems    int          `json:"totalItems"`
}

func toExportSale(s model.Sale) exportSale {
	items := make([]exportLine, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, exportLine{
			ID:       it.ProductID,
			Name:     it.Name,
			Price:    toAmount(it.Price),
			Quantity: it.Quantity,
			Total:    toAmount(it.Total),
		})
	}
	return exportSale{
		ID:            s.ID,
		Ref:           s.Ref,
		CustomerName:  s.CustomerName,
		Date:          model.FormatTimestamp(s.Date),
		Items:         items,
		TotalAmount:   toAmount(s.TotalAmount),
		PaidAmount:    toAmount(s.PaidAmount),
		DueAmount:     toAmount(s.DueAmount),
		ChangeAmount:  toAmount(s.ChangeAmount),
		PaymentMethod: string(s.PaymentMethod),
		TotalItems:    s.TotalItems,
	}
}

// Export writes the cached sales, newest first, as a JSON array indented
// with two spaces.
func (l *Ledger) Export(w io.Writer) error {
	return WriteJSON(w, l.sales)
}

// WriteJSON writes sales in the export JSON layout.
func WriteJSON(w io.Writer, sales []model.Sale) error {
	out := make([]exportSale, 0, len(sales))
	for _, s := range sales {
		out = append(out, toExportSale(s))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return nil
}

// csvRow is one sale line in the spreadsheet export.
type csvRow struct {
	SaleID        int64  `csv:"sale_id"`
	Ref           string `csv:"ref"`
	Date          string `csv:"date"`
	CustomerName  string `csv:"customer_name"`
	PaymentMethod string `csv:"payment_method"`
	LineNo        int    `csv:"line_no"`
	ProductID     int64  `csv:"product_id"`
	Product       string `csv:"product"`
	Price         string `csv:"price"`
	Quantity      int    `csv:"quantity"`
	LineTotal     string `csv:"line_total"`
	SaleTotal     string `csv:"sale_total"`
	Paid          string `csv:"paid"`
	Due           string `csv:"due"`
	Change        string `csv:"change"`
}

func csvRows(sales []model.Sale) []*csvRow {
	var rows []*csvRow
	for _, s := range sales {
		for i, it := range s.Items {
			rows = append(rows, &csvRow{
				SaleID:        s.ID,
				Ref:           s.Ref,
				Date:          model.FormatTimestamp(s.Date),
				CustomerName:  s.CustomerName,
				PaymentMethod: string(s.PaymentMethod),
				LineNo:        i + 1,
				ProductID:     it.ProductID,
				Product:       it.Name,
				Price:         model.FormatAmount(it.Price),
				Quantity:      it.Quantity,
				LineTotal:     model.FormatAmount(it.Total),
				SaleTotal:     model.FormatAmount(s.TotalAmount),
				Paid:          model.FormatAmount(s.PaidAmount),
				Due:           model.FormatAmount(s.DueAmount),
				Change:        model.FormatAmount(s.ChangeAmount),
			})
		}
	}
	return rows
}

// ExportCSV writes one row per sale line, newest sale first.
func (l *Ledger) ExportCSV(w io.Writer) error {
	rows := csvRows(l.sales)
	if rows == nil {
		rows = []*csvRow{}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

const (
	salesSheet = "Sheet1"
	linesSheet = "Lines"
)

var (
	salesHeader = []string{"Sale", "Ref", "Date", "Customer", "Method", "Items", "Total", "Paid", "Due", "Change"}
	linesHeader = []string{"Sale", "Line", "Product ID", "Product", "Price", "Quantity", "Total"}
)

// ExportXLSX writes a workbook with a sales summary sheet and a line sheet.
// Amounts are numeric cells.
func (l *Ledger) ExportXLSX(w io.Writer) error {
	f := excelize.NewFile()
	f.NewSheet(linesSheet)

	writeRow(f, salesSheet, 1, toCells(salesHeader))
	writeRow(f, linesSheet, 1, toCells(linesHeader))

	lineRow := 2
	for i, s := range l.sales {
		writeRow(f, salesSheet, i+2, []any{
			s.ID, s.Ref, model.FormatTimestamp(s.Date), s.CustomerName, string(s.PaymentMethod),
			s.TotalItems, s.TotalAmount.InexactFloat64(), s.PaidAmount.InexactFloat64(),
			s.DueAmount.InexactFloat64(), s.ChangeAmount.InexactFloat64(),
		})
		for n, it := range s.Items {
			writeRow(f, linesSheet, lineRow, []any{
				s.ID, n + 1, it.ProductID, it.Name,
				it.Price.InexactFloat64(), it.Quantity, it.Total.InexactFloat64(),
			})
			lineRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		f.SetCellValue(sheet, cellName(col, row), v)
	}
}

// cellName returns the A1-style name of a zero-based column and 1-based row.
func cellName(col, row int) string {
	return excelize.ToAlphaString(col) + strconv.Itoa(row)
}

// ExportFile writes the cached sales to dir/FilenameFor(t, f) and returns
// the path. An empty ledger returns ErrNothingToExport and writes nothing.
func (l *Ledger) ExportFile(dir string, t time.Time, f Format) (string, error) {
	if len(l.sales) == 0 {
		return "", ErrNothingToExport
	}

	write := l.Export
	switch f {
	case FormatCSV:
		write = l.ExportCSV
	case FormatXLSX:
		write = l.ExportXLSX
	}

	path := filepath.Join(dir, FilenameFor(t, f))
	tmp, err := os.CreateTemp(dir, ".pos-sales-*")
	if err != nil {
		return "", fmt.Errorf("export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("export file: %w", err)
	}

	l.log.Info("sales exported", zap.String("path", path), zap.Int("sales", len(l.sales)))
	return path, nil
}
