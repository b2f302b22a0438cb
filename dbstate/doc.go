// Package dbstate provides the store-independent core of a database-state test harness.
//
// It defines the types used to seed a relational store with fixture data, to capture
// snapshots of the full store content keyed by primary key, and to compute the
// structured difference between two snapshots. Test assertions can then be expressed
// as "what changed" instead of "what is the absolute state".
//
// Key types:
//   - Fixture / FixtureItem: the flattened seed format (TableMarker, RecordByColumns, RecordPositional)
//   - Snapshot: table name -> primary key value -> Row
//   - DiffResult: per table inserts, updates (changed columns plus primary key) and deletes
//   - ResetGuard: the explicit opt-in required before any destructive reset
//
// Common usage pattern (with the postgresengine package):
//
//	h, err := postgresengine.NewHarness(ctx, store)
//	if err != nil {
//		// handle error
//	}
//	defer h.Close(ctx)
//
//	_, err = h.Load(ctx,
//		dbstate.Table("widgets"),
//		dbstate.Cols{"id": 1, "name": "A"},
//	)
//
//	// exercise the code under test ...
//
//	diff, err := h.Diff(ctx)
package dbstate
