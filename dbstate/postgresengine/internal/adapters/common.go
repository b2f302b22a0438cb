package adapters

import (
	"context"
	"errors"
	"fmt"
)

// FetchAll runs the query and returns every row as column name to value.
// The result is empty, never nil, when the query matches nothing.
func FetchAll(ctx context.Context, db DBAdapter, query string, args ...any) (rows []map[string]any, err error) {
	dbRows, queryErr := db.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, queryErr
	}

	defer func() {
		if closeErr := dbRows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	columns, columnsErr := dbRows.Columns()
	if columnsErr != nil {
		return nil, columnsErr
	}

	rows = make([]map[string]any, 0)

	for dbRows.Next() {
		values, valuesErr := dbRows.Values()
		if valuesErr != nil {
			return nil, valuesErr
		}

		if len(values) != len(columns) {
			return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}

		rows = append(rows, row)
	}

	if iterErr := dbRows.Err(); iterErr != nil {
		return nil, errors.Join(errors.New("iterating rows failed"), iterErr)
	}

	return rows, nil
}
