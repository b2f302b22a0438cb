package dbstate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// IdentifierPattern is the only accepted shape for table, column and schema names.
// Identifiers end up in SQL text, so anything else is rejected.
const IdentifierPattern = "^[A-Za-z0-9_]+$"

var identifierRegexp = regexp.MustCompile(IdentifierPattern)

// IsValidIdentifier reports whether name matches IdentifierPattern.
func IsValidIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

// ValidateIdentifier returns ErrInvalidIdentifier when name does not match IdentifierPattern.
// kind is used for the error message only, e.g. "column" or "table".
func ValidateIdentifier(kind, name string) error {
	if !IsValidIdentifier(name) {
		return errors.Join(ErrInvalidIdentifier, fmt.Errorf("%s name %q must match %s", kind, name, IdentifierPattern))
	}

	return nil
}

// ParsePrimaryKeyColumn extracts the indexed column from a primary key index definition such as
//
//	CREATE UNIQUE INDEX widgets_pkey ON public.widgets USING btree (id)
//
// Composite keys, expression indexes and anything that is not a plain identifier yield ErrSchema.
func ParsePrimaryKeyColumn(indexDef string) (string, error) {
	open := strings.Index(indexDef, "(")
	if open < 0 {
		return "", errors.Join(ErrSchema, fmt.Errorf("no column list in index definition %q", indexDef))
	}

	closing := strings.LastIndex(indexDef, ")")
	if closing < open {
		return "", errors.Join(ErrSchema, fmt.Errorf("unbalanced column list in index definition %q", indexDef))
	}

	columnList := indexDef[open+1 : closing]
	if strings.ContainsAny(columnList, "(),") {
		return "", errors.Join(ErrSchema, fmt.Errorf("only single-column primary keys are supported, got %q", columnList))
	}

	column := strings.TrimSpace(columnList)
	if len(column) > 1 && strings.HasPrefix(column, `"`) && strings.HasSuffix(column, `"`) {
		column = column[1 : len(column)-1]
	}

	if !IsValidIdentifier(column) {
		return "", errors.Join(ErrSchema, fmt.Errorf("primary key column %q is not a plain identifier", column))
	}

	return column, nil
}
