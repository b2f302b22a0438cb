package dbstate

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// TableDiff lists the row level changes of one table.
// Updates only carry the changed columns plus the primary key column.
type TableDiff struct {
	Inserts []Row `json:"inserts"`
	Updates []Row `json:"updates"`
	Deletes []Row `json:"deletes"`
}

// Counts returns [inserts, updates, deletes].
func (d TableDiff) Counts() [3]int {
	return [3]int{len(d.Inserts), len(d.Updates), len(d.Deletes)}
}

// DiffResult maps every table with at least one change to its TableDiff.
type DiffResult map[string]TableDiff

// CompactDiff maps every changed table to [insertCount, updateCount, deleteCount].
type CompactDiff map[string][3]int

// Compact reduces the result to change counts per table.
func (d DiffResult) Compact() CompactDiff {
	compact := make(CompactDiff, len(d))
	for tableName, tableDiff := range d {
		compact[tableName] = tableDiff.Counts()
	}

	return compact
}

// IsEmpty reports whether no table changed.
func (d DiffResult) IsEmpty() bool {
	return len(d) == 0
}

// Tables returns the names of the changed tables in sorted order.
func (d DiffResult) Tables() []string {
	return slices.Sorted(maps.Keys(d))
}

// Diff computes the row level changes that turn snapshot a into snapshot b.
//
// Both snapshots must cover the same tables, otherwise ErrSchemaDrift is returned.
// Values are compared exactly, there is no tolerance for numeric precision or the like.
// Rows within each list are ordered by primary key.
func Diff(a, b Snapshot, pkeys PrimaryKeys) (DiffResult, error) {
	if !slices.Equal(a.TableNames(), b.TableNames()) {
		return nil, errors.Join(
			ErrSchemaDrift,
			fmt.Errorf("before: %v, after: %v", a.TableNames(), b.TableNames()),
		)
	}

	result := make(DiffResult)

	for _, tableName := range b.TableNames() {
		tableDiff, err := diffTable(tableName, a[tableName], b[tableName], pkeys)
		if err != nil {
			return nil, err
		}

		if len(tableDiff.Inserts) > 0 || len(tableDiff.Updates) > 0 || len(tableDiff.Deletes) > 0 {
			result[tableName] = tableDiff
		}
	}

	return result, nil
}

func diffTable(tableName string, before, after TableRows, pkeys PrimaryKeys) (TableDiff, error) {
	tableDiff := TableDiff{
		Inserts: make([]Row, 0),
		Updates: make([]Row, 0),
		Deletes: make([]Row, 0),
	}

	for _, key := range after.SortedKeys() {
		row := after[key]

		beforeRow, existed := before[key]
		if !existed {
			tableDiff.Inserts = append(tableDiff.Inserts, row)
			continue
		}

		update := changedColumns(beforeRow, row)
		if len(update) == 0 {
			continue
		}

		pkey, ok := pkeys[tableName]
		if !ok {
			return TableDiff{}, errors.Join(ErrSchema, fmt.Errorf("no primary key known for table %q", tableName))
		}

		update[pkey] = row[pkey]
		tableDiff.Updates = append(tableDiff.Updates, update)
	}

	for _, key := range before.SortedKeys() {
		if _, stillThere := after[key]; !stillThere {
			tableDiff.Deletes = append(tableDiff.Deletes, before[key])
		}
	}

	return tableDiff, nil
}

func changedColumns(before, after Row) Row {
	update := make(Row)
	for column, value := range after {
		beforeValue, ok := before[column]
		if !ok || !ValuesEqual(beforeValue, value) {
			update[column] = value
		}
	}

	return update
}

// ValuesEqual compares two column values exactly as they were read from the store.
func ValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)

	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}

	return reflect.DeepEqual(a, b)
}
