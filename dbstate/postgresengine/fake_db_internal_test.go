package postgresengine

import (
	"context"
	"errors"
	"strings"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine/internal/adapters"
)

// fakeDB answers catalog and SELECT * queries from canned data and records every statement.
type fakeDB struct {
	tables       []string
	indexDefs    map[string]string
	columns      map[string][]string
	tableRows    map[string][]map[string]any
	execErr      error
	queryErr     error
	executed     []fakeStatement
	queried      []fakeStatement
	failExecFrom int
}

type fakeStatement struct {
	query string
	args  []any
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tables: []string{"participants", "tips", "widgets"},
		indexDefs: map[string]string{
			"participants": "CREATE UNIQUE INDEX participants_pkey ON public.participants USING btree (id)",
			"tips":         "CREATE UNIQUE INDEX tips_pkey ON public.tips USING btree (id)",
			"widgets":      "CREATE UNIQUE INDEX widgets_pkey ON public.widgets USING btree (id)",
		},
		columns: map[string][]string{
			"widgets": {"id", "name", "color"},
		},
		tableRows: map[string][]map[string]any{},
	}
}

func (f *fakeDB) Query(_ context.Context, query string, args ...any) (adapters.DBRows, error) {
	f.queried = append(f.queried, fakeStatement{query: query, args: args})

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	switch {
	case strings.Contains(query, `"pg_tables"`):
		rows := make([]map[string]any, 0, len(f.tables))
		for _, table := range f.tables {
			rows = append(rows, map[string]any{colTableName: table})
		}

		return newFakeRows([]string{colTableName}, rows), nil

	case strings.Contains(query, `"pg_indexes"`):
		rows := make([]map[string]any, 0, len(f.indexDefs))
		for _, table := range f.tables {
			if def, ok := f.indexDefs[table]; ok {
				rows = append(rows, map[string]any{colTableName: []byte(table), colIndexDef: def})
			}
		}

		return newFakeRows([]string{colTableName, colIndexDef}, rows), nil

	case strings.Contains(query, `"information_schema"."columns"`):
		table, _ := args[1].(string)
		rows := make([]map[string]any, 0)
		for _, column := range f.columns[table] {
			rows = append(rows, map[string]any{colColumnName: column})
		}

		return newFakeRows([]string{colColumnName}, rows), nil

	default:
		for table, rows := range f.tableRows {
			if strings.Contains(query, `."`+table+`"`) {
				return newFakeRows(columnsOf(rows), rows), nil
			}
		}

		return newFakeRows(nil, nil), nil
	}
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...any) (adapters.DBResult, error) {
	f.executed = append(f.executed, fakeStatement{query: query, args: args})

	if f.execErr != nil && len(f.executed) > f.failExecFrom {
		return nil, f.execErr
	}

	return fakeResult(1), nil
}

func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}

	columns := make([]string, 0, len(rows[0]))
	for column := range rows[0] {
		columns = append(columns, column)
	}

	return columns
}

type fakeRows struct {
	columns []string
	rows    []map[string]any
	pos     int
}

func newFakeRows(columns []string, rows []map[string]any) *fakeRows {
	return &fakeRows{columns: columns, rows: rows, pos: -1}
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *fakeRows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, errors.New("no current row")
	}

	values := make([]any, len(r.columns))
	for i, column := range r.columns {
		values[i] = r.rows[r.pos][column]
	}

	return values, nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) {
	return int64(r), nil
}
