// Package model defines the records of the point-of-sale core: products,
// cart lines, sales and the stock movement journal.
//
// Money is held as shopspring/decimal values so that totals, due and change
// always reconcile exactly; display rounds to two decimal places.
//
// Timestamps are UTC and serialize as ISO-8601 with millisecond precision
// (TimestampLayout), which also sorts lexicographically in the store.
package model
