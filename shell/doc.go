// Package shell holds the infrastructure glue shared by the circulation, reconciliation, and issues services:
// retrying transactions that lost a serialization race, and instrumenting every operation with
// logs, metrics, and spans through the observability interfaces of package stock.
package shell
