package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrClosed is returned by every operation on a closed or never opened handle.
	ErrClosed = errors.New("db: store closed")
)

// Op names the failing operation in Error. Redis ops use the command name.
const (
	OpSearch    = "FT.SEARCH"
	OpGet       = "GET"
	OpSet       = "SET"
	OpPing      = "PING"
	OpOpen      = "OPEN"
	OpMatch     = "MATCH"
	OpSubstring = "SUBSTRING"
	OpKNN       = "KNN"
	OpGetItem   = "GetItem"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
