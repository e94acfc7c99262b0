package warehouse

import (
	"errors"
	"fmt"
)

// Warehouse errors.
var (
	// ErrDataUnavailable is returned when the referenced table or schema
	// does not exist upstream. A missing table means the whole chart
	// family cannot render, so callers must propagate it, not swallow it.
	ErrDataUnavailable = errors.New("warehouse data unavailable")

	// ErrSchemaMismatch is returned when an expected column is absent
	// from the fetched table.
	ErrSchemaMismatch = errors.New("warehouse schema mismatch")
)

// Unavailable wraps ErrDataUnavailable with the table reference.
func Unavailable(schema, table string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, TableRef(schema, table), cause)
	}
	return fmt.Errorf("%w: %s", ErrDataUnavailable, TableRef(schema, table))
}

// Mismatch wraps ErrSchemaMismatch with the table and column names.
func Mismatch(schema, table, column string) error {
	return fmt.Errorf("%w: %s has no column %q", ErrSchemaMismatch, TableRef(schema, table), column)
}

// TableRef formats a schema-qualified table name.
func TableRef(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
