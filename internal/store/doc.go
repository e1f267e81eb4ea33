// Package store provides SQLite-backed durable storage for the point-of-sale
// core.
//
// Three collections live in one database file:
//   - products: the catalog, indexed by name
//   - sales: completed sales, indexed by date and customer name
//   - stock_movements: the deduction journal, one row per sale line
//
// # Identity
//
// Ids are assigned by the store (INTEGER PRIMARY KEY AUTOINCREMENT) and are
// never reused after a delete. Update, delete and get on a missing id fail
// with a NOT_FOUND error from package apperr.
//
// # Deduction journal
//
// A sale is written first and is the durability point. Each of its lines is
// then deducted from stock through ApplyStockDeduction, which reads the
// product, writes the clamped stock and records the movement in a single
// transaction. UNIQUE(sale_id, line_no) makes the call idempotent, so lines
// left without a movement after a crash are found by PendingDeductions and can
// be replayed any number of times.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - one open connection: single writer
//
// Open is idempotent per process: opening the same path twice returns the
// same reference-counted handle.
package store
