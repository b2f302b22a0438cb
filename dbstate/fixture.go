package dbstate

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// FixtureItem is one element of the flattened fixture format.
// The only implementations are TableMarker, RecordByColumns and RecordPositional.
type FixtureItem interface {
	isFixtureItem()
}

// TableMarker switches the current table for all following records.
type TableMarker string

// RecordByColumns is a record given as column name to value.
type RecordByColumns map[string]any

// RecordPositional is a record given as a full row of values in table column order.
type RecordPositional []any

func (TableMarker) isFixtureItem()      {}
func (RecordByColumns) isFixtureItem()  {}
func (RecordPositional) isFixtureItem() {}

// Cols is a short name for RecordByColumns in fixture literals.
type Cols = RecordByColumns

// Vals is a short name for RecordPositional in fixture literals.
type Vals = RecordPositional

// Table returns a TableMarker for name.
func Table(name string) TableMarker {
	return TableMarker(name)
}

// Fixture is an ordered, flattened sequence of fixture items, e.g.
//
//	Fixture{Table("widgets"), Cols{"id": 1}, Vals{2, "B"}, Table("tips"), Cols{...}}
type Fixture []FixtureItem

// NewFixture returns an empty Fixture to be extended with the builder methods.
func NewFixture() Fixture {
	return make(Fixture, 0)
}

// Table appends a table marker.
func (f Fixture) Table(name string) Fixture {
	return append(f, TableMarker(name))
}

// Record appends a record given by column name.
func (f Fixture) Record(columns map[string]any) Fixture {
	return append(f, RecordByColumns(columns))
}

// Positional appends a record given by position.
func (f Fixture) Positional(values ...any) Fixture {
	return append(f, RecordPositional(values))
}

// Insert is a single validated row insertion derived from a fixture.
// Columns is empty for positional records, otherwise sorted and of the same length as Values.
type Insert struct {
	Table   string
	Columns []string
	Values  []any
}

// IsPositional reports whether the insert has no explicit column list.
func (i Insert) IsPositional() bool {
	return len(i.Columns) == 0
}

// PlanInserts walks the fixture items and turns them into inserts against knownTables.
// It fails on the first offending item, before anything could have been written:
// ErrUnknownTable, ErrNoTargetTable, ErrInvalidIdentifier or ErrInvalidFixture.
func PlanInserts(knownTables []string, items ...FixtureItem) ([]Insert, error) {
	inserts := make([]Insert, 0, len(items))
	currentTable := ""

	for position, item := range items {
		switch it := item.(type) {
		case TableMarker:
			tableName := string(it)
			if !slices.Contains(knownTables, tableName) {
				return nil, errors.Join(ErrUnknownTable, fmt.Errorf("item %d: %q", position, tableName))
			}

			currentTable = tableName

		case RecordByColumns:
			if currentTable == "" {
				return nil, errors.Join(ErrNoTargetTable, fmt.Errorf("item %d", position))
			}

			columns := make([]string, 0, len(it))
			for column := range it {
				if err := ValidateIdentifier("column", column); err != nil {
					return nil, errors.Join(err, fmt.Errorf("item %d, table %q", position, currentTable))
				}

				columns = append(columns, column)
			}

			slices.Sort(columns)

			values := make([]any, len(columns))
			for i, column := range columns {
				if err := validateValue(it[column]); err != nil {
					return nil, errors.Join(err, fmt.Errorf("item %d, table %q, column %q", position, currentTable, column))
				}

				values[i] = it[column]
			}

			inserts = append(inserts, Insert{Table: currentTable, Columns: columns, Values: values})

		case RecordPositional:
			if currentTable == "" {
				return nil, errors.Join(ErrNoTargetTable, fmt.Errorf("item %d", position))
			}

			for i, value := range it {
				if err := validateValue(value); err != nil {
					return nil, errors.Join(err, fmt.Errorf("item %d, table %q, value %d", position, currentTable, i))
				}
			}

			inserts = append(inserts, Insert{Table: currentTable, Values: slices.Clone([]any(it))})

		case nil:
			return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("item %d is nil", position))

		default:
			return nil, errors.Join(ErrInvalidFixture, fmt.Errorf("item %d has unsupported type %T", position, item))
		}
	}

	return inserts, nil
}

// validateValue accepts values that bind as a single statement parameter.
func validateValue(value any) error {
	switch value.(type) {
	case nil, []byte, time.Time, driver.Valuer:
		return nil
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return errors.Join(ErrInvalidFixture, fmt.Errorf("value of type %T cannot be bound as a parameter", value))
	default:
		return nil
	}
}
