package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable indicates the source could not be opened or read.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrSchemaMismatch indicates the source header lacks declared columns.
	ErrSchemaMismatch = errors.New("source does not match schema")
	// ErrUnknownColumn indicates a column name the schema does not declare.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnType indicates a column used in a way its type does not allow.
	ErrColumnType = errors.New("wrong column type")
)

// ColumnError attaches a column name to an integration error.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }
