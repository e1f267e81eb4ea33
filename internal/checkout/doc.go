// Package checkout implements the sale completion workflow.
//
// Completing a sale proceeds in order:
//
//  1. reject an empty cart (no writes)
//  2. compute total, due and change
//  3. write the sale: the durability point
//  4. deduct stock line by line through the journal
//  5. reload catalog and ledger
//  6. clear the cart
//  7. notify the operator
//
// A failure at step 3 leaves everything as it was, cart included. A failure
// during step 4 leaves the sale recorded and the remaining lines pending in
// the journal; Recover replays them later without ever deducting a line
// twice. A line whose product has been deleted is skipped and reported as a
// PARTIAL_COMMIT warning on the receipt.
package checkout
