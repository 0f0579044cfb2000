package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound  = errors.New("db: key not found")
	ErrDimMismatch  = errors.New("db: vector dimension mismatch")
	ErrInvalidQuery = errors.New("db: invalid query")
)

// Op constants name the failing command for error context.
const (
	OpGet    = "GET"
	OpSet    = "SET"
	OpDel    = "DEL"
	OpPing   = "PING"
	OpInsert = "INSERT"
	OpSearch = "SEARCH"
	OpReset  = "RESET"

	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
