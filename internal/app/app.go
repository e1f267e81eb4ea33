// Package app assembles the offpos components around one store and owns
// their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/cart"
	"github.com/roach88/offpos/internal/catalog"
	"github.com/roach88/offpos/internal/checkout"
	"github.com/roach88/offpos/internal/clock"
	"github.com/roach88/offpos/internal/config"
	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/store"
)

// App holds the application state: one store, the catalog and ledger caches
// over it, the cart and the register that turns the cart into sales.
// Jobs (recovery, export, sale completion) are serialised by an internal
// mutex; direct use of the components is not.
type App struct {
	Config   config.Config
	Log      *zap.Logger
	Store    *store.Store
	Catalog  *catalog.Catalog
	Ledger   *ledger.Ledger
	Cart     *cart.Cart
	Register *checkout.Register
	Bus      *notify.Bus

	clock  clock.Clock
	jobs   sync.Mutex
	sched  *cron.Cron
	closed bool
}

// Option customises Open.
type Option func(*options)

type options struct {
	clock clock.Clock
	refs  checkout.RefGenerator
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRefs replaces the UUID sale reference generator.
func WithRefs(r checkout.RefGenerator) Option {
	return func(o *options) { o.refs = r }
}

// Open opens the database named by cfg and brings the caches up to date:
// demo seeding when enabled, recovery of pending stock deductions, then the
// catalog and ledger loads.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.System{}, refs: checkout.UUIDRefs{}}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Log:    log,
		Store:  s,
		Cart:   cart.New(),
		Bus:    notify.NewBus(log),
		clock:  o.clock,
	}
	a.Catalog = catalog.New(s, o.clock, log)
	a.Ledger = ledger.New(s, log)
	a.Register = checkout.New(checkout.Deps{
		Store:    s,
		Catalog:  a.Catalog,
		Ledger:   a.Ledger,
		Cart:     a.Cart,
		Clock:    o.clock,
		Notifier: a.Bus,
		Refs:     o.refs,
		Logger:   log,
		Currency: cfg.POS.Currency,
	})

	if err := a.start(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) start(ctx context.Context) error {
	if a.Config.POS.SeedDemo {
		n, err := a.Catalog.SeedDemo(ctx)
		if err != nil {
			return fmt.Errorf("seed demo products: %w", err)
		}
		if n > 0 {
			a.Log.Info("demo products seeded", zap.Int("count", n))
		}
	}
	if err := a.Catalog.Load(ctx); err != nil {
		return err
	}

	report, err := a.Register.Recover(ctx)
	if err != nil {
		return err
	}
	if len(report.Sales) > 0 {
		a.Log.Warn("completed interrupted sales",
			zap.Int("sales", len(report.Sales)),
			zap.Int("applied", report.Applied),
			zap.Int("skipped", report.Skipped))
	}

	return a.Ledger.Load(ctx)
}

// Close stops the scheduler if running and releases the store. Calls after
// the first are no-ops.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.StopScheduler()
	return a.Store.Close()
}

// Complete runs the register's sale completion under the job lock.
func (a *App) Complete(ctx context.Context, t checkout.Tender) (*checkout.Receipt, error) {
	a.jobs.Lock()
	defer a.jobs.Unlock()
	return a.Register.Complete(ctx, t)
}

// Recover applies stock deductions left pending by an interrupted sale.
func (a *App) Recover(ctx context.Context) (checkout.RecoveryReport, error) {
	a.jobs.Lock()
	defer a.jobs.Unlock()
	return a.Register.Recover(ctx)
}

// Export reloads the ledger and writes it to the configured export dir.
// An empty ledger returns ledger.ErrNothingToExport.
func (a *App) Export(ctx context.Context, dir string, f ledger.Format) (string, error) {
	a.jobs.Lock()
	defer a.jobs.Unlock()

	if dir == "" {
		dir = a.Config.POS.ExportDir
	}
	if err := a.Ledger.Load(ctx); err != nil {
		return "", err
	}
	return a.Ledger.ExportFile(dir, a.clock.Now(), f)
}

// LowStock returns catalog products below the configured threshold.
func (a *App) LowStock() []model.Product {
	return a.Catalog.LowStock(a.Config.POS.LowStockThreshold)
}

// IsNothingToExport reports whether err is the empty-ledger export error.
func IsNothingToExport(err error) bool {
	return errors.Is(err, ledger.ErrNothingToExport)
}
