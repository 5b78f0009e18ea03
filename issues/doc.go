// Package issues implements the issue tracker for damaged, lost, and unreturned copies.
//
// Reporting an issue never changes stock. Resolving it as written_off with AdjustQuantity removes the copies
// from the collection: total quantity and available copies shrink together, floored at zero.
package issues
