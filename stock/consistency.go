package stock

import "context"

// ConsistencyLevel tells a store with a read replica where a plain read may be served from.
// Transactions ignore it and always run on the primary.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary. A context without a level reads this way.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency lets reports like inventory stats or open issues lag behind the primary.
	EventualConsistency
)

type consistencyKey struct{}

// WithStrongConsistency returns a context whose reads go to the primary.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey{}, StrongConsistency)
}

// WithEventualConsistency returns a context whose reads may go to a replica.
//
//	stats, err := reconciler.GetInventoryStats(stock.WithEventualConsistency(ctx), sessionID)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey{}, EventualConsistency)
}

// GetConsistencyLevel returns the level stored in ctx.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	level, ok := ctx.Value(consistencyKey{}).(ConsistencyLevel)
	if !ok {
		return StrongConsistency
	}

	return level
}

func (c ConsistencyLevel) String() string {
	if c == EventualConsistency {
		return "eventual"
	}

	return "strong"
}
