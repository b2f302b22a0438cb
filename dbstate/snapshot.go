package dbstate

import (
	"cmp"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Row is one table row as column name to value.
type Row map[string]any

// TableRows holds all rows of one table keyed by primary key value.
type TableRows map[any]Row

// Snapshot holds the full content of every table at one point in time.
type Snapshot map[string]TableRows

// PrimaryKeys maps a table name to the name of its single primary key column.
type PrimaryKeys map[string]string

// KeyOf normalizes a primary key value so that it can be used as a map key.
// Drivers return some types (text based uuid, numeric) as []byte, which is not hashable.
// A driver.Valuer, like pgx's pgtype.Numeric which carries a *big.Int, is keyed by its Value,
// so equal keys read in different dumps hash equally. Numeric text becomes a json.Number.
func KeyOf(value any) any {
	if valuer, ok := value.(driver.Valuer); ok {
		if v, err := valuer.Value(); err == nil {
			if text, isText := v.(string); isText && isNumericText(text) {
				return json.Number(text)
			}

			value = v
		}
	}

	if b, ok := value.([]byte); ok {
		return string(b)
	}

	return value
}

func isNumericText(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for column, value := range r {
		if b, ok := value.([]byte); ok {
			value = slices.Clone(b)
		}

		clone[column] = value
	}

	return clone
}

// Clone returns a copy of the snapshot that shares no maps with the original.
func (s Snapshot) Clone() Snapshot {
	clone := make(Snapshot, len(s))
	for tableName, rows := range s {
		clonedRows := make(TableRows, len(rows))
		for key, row := range rows {
			clonedRows[key] = row.Clone()
		}

		clone[tableName] = clonedRows
	}

	return clone
}

// TableNames returns the snapshot's table names in sorted order.
func (s Snapshot) TableNames() []string {
	return slices.Sorted(maps.Keys(s))
}

// RowCount returns the number of rows over all tables.
func (s Snapshot) RowCount() int {
	count := 0
	for _, rows := range s {
		count += len(rows)
	}

	return count
}

// SortedKeys returns the primary key values of the table in a stable order.
func (t TableRows) SortedKeys() []any {
	keys := slices.Collect(maps.Keys(t))
	slices.SortFunc(keys, compareKeys)

	return keys
}

func compareKeys(a, b any) int {
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return cmp.Compare(av, bv)
		}
	case int16:
		if bv, ok := b.(int16); ok {
			return cmp.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case json.Number:
		if bv, ok := b.(json.Number); ok {
			af, aErr := av.Float64()
			bf, bErr := bv.Float64()
			if aErr == nil && bErr == nil {
				return cmp.Compare(af, bf)
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
