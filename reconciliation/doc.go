// Package reconciliation implements the inventory reconciler: periodic stock takes that compare the
// recorded totals with the copies found on the shelf.
//
// A session snapshots every book's total quantity at start. Items are then checked one by one and end up
// checked or discrepancy. Completing the session freezes all of its items. At most one session is in
// progress at any time, enforced by the store inside the creating transaction.
//
// Reconciliation never changes stock. Shortfalls become book issues, either one at a time through the
// issue tracker or all at once when completing with ReportShortfalls.
package reconciliation
