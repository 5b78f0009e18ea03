// Package circulation implements the circulation ledger: issuing, returning, and renewing loans.
//
// Every operation runs in one store transaction that reads the book, checks the rules, moves the
// available copies through stock.BookStock, and writes the loan. Serialization conflicts are retried
// as a whole. Reads of loans first flag every active loan past its due date as overdue.
package circulation
