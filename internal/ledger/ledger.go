// Package ledger caches recorded sales for browsing, statistics and export.
//
// Sales are held newest first. A Ledger is not safe for concurrent use.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/roach88/offpos/internal/model"
)

// Store is the sales collection the ledger reads from.
type Store interface {
	ListSales(ctx context.Context) ([]model.Sale, error)
}

// Ledger is the in-memory view of all sales.
type Ledger struct {
	store Store
	log   *zap.Logger

	sales []model.Sale
	byID  map[int64]int
}

// New creates an empty ledger. Call Load to populate it.
func New(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store: store,
		log:   log.Named("ledger"),
		byID:  make(map[int64]int),
	}
}

// Load replaces the cache with every stored sale, ordered by date
// descending. Sales with equal dates keep id order.
// On failure the previous cache is kept.
func (l *Ledger) Load(ctx context.Context) error {
	sales, err := l.store.ListSales(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Date.After(sales[j].Date)
	})

	byID := make(map[int64]int, len(sales))
	for i, s := range sales {
		byID[s.ID] = i
	}
	l.sales = sales
	l.byID = byID

	l.log.Debug("ledger loaded", zap.Int("sales", len(sales)))
	return nil
}

// All returns a copy of the cached sales, newest first.
func (l *Ledger) All() []model.Sale {
	out := make([]model.Sale, len(l.sales))
	copy(out, l.sales)
	return out
}

// ByID returns the cached sale.
func (l *Ledger) ByID(id int64) (model.Sale, bool) {
	i, ok := l.byID[id]
	if !ok {
		return model.Sale{}, false
	}
	return l.sales[i], true
}

// Len returns the number of cached sales.
func (l *Ledger) Len() int {
	return len(l.sales)
}

// Filter returns cached sales whose customer name contains customer (case
// folded) and whose date lies in [from, to). Empty customer and zero bounds
// match everything.
func (l *Ledger) Filter(customer string, from, to time.Time) []model.Sale {
	fold := cases.Fold()
	needle := fold.String(model.NormalizeText(customer))

	var out []model.Sale
	for _, s := range l.sales {
		if needle != "" && !strings.Contains(fold.String(s.CustomerName), needle) {
			continue
		}
		if !from.IsZero() && s.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !s.Date.Before(to) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Stats summarizes a set of sales.
type Stats struct {
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
	Items   int             `json:"items"`
	Due     decimal.Decimal `json:"due"`
	Average decimal.Decimal `json:"average"`
	Median  decimal.Decimal `json:"median"`
}

// Stats derives totals over the cached sales.
func (l *Ledger) Stats() Stats {
	return Summarize(l.sales)
}

// Summarize computes Stats for sales. Revenue and due are exact sums;
// average and median ticket are rounded to two decimals.
func Summarize(sales []model.Sale) Stats {
	st := Stats{Revenue: decimal.Zero, Due: decimal.Zero, Average: decimal.Zero, Median: decimal.Zero}
	if len(sales) == 0 {
		return st
	}

	tickets := make(stats.Float64Data, 0, len(sales))
	for _, s := range sales {
		st.Revenue = st.Revenue.Add(s.TotalAmount)
		st.Due = st.Due.Add(s.DueAmount)
		st.Items += s.TotalItems
		st.Count++
		tickets = append(tickets, s.TotalAmount.InexactFloat64())
	}

	st.Average = st.Revenue.Div(decimal.NewFromInt(int64(st.Count))).Round(2)
	if median, err := stats.Median(tickets); err == nil {
		st.Median = decimal.NewFromFloat(median).Round(2)
	}
	return st
}
