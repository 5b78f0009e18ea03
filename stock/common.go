package stock

import (
	"time"
)

// MaxOpenLoansPerBorrower is the number of active or overdue loans a single borrower may hold at once.
const MaxOpenLoansPerBorrower = 3

// Date is a calendar day, represented as midnight UTC of that day.
type Date = time.Time

// Timestamp is an instant with UTC normalization and microsecond precision, matching Postgres timestamptz.
type Timestamp = time.Time

// ToDate returns the calendar day of t in t's own location. Pass a clock reading in the library's
// time zone to get the local day.
func ToDate(t time.Time) Date {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToTimestamp converts a time to Timestamp with UTC normalization and microsecond precision.
func ToTimestamp(t time.Time) Timestamp {
	return t.UTC().Truncate(time.Microsecond)
}

// Clock supplies the current time. Services take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now()
}

func ptr[T any](v T) *T {
	return &v
}
