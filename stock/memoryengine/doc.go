// Package memoryengine provides an in-memory implementation of the stock.Store interface.
//
// Transactions are serialized by one mutex. Each transaction works on a copy of the state that replaces the
// live state only when the transaction function returns nil, so a failed operation never partially applies.
// With WithSnapshotFile the committed state is written to a JSON file after every commit and read back
// by NewStore, which makes the engine usable by the CLI without a database.
//
//	store, err := memoryengine.NewStore(memoryengine.WithSnapshotFile("shelfstock.json"))
package memoryengine
