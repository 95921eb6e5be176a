package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("table offsets overlap")
	ErrOutOfBounds        = errors.New("table extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrTooManyTables      = errors.New("too many tables in file")
	ErrInvalidTableName   = errors.New("invalid table name")
	ErrInvalidShape       = errors.New("invalid table shape")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTableNotFound      = errors.New("table not found")
	ErrClosed             = errors.New("file is closed")
)

// ValidationError provides detailed information about validation failures.
// Unwrap returns the matching sentinel so callers can use errors.Is.
type ValidationError struct {
	Type   string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Table  string // Primary table name involved
	Table2 string // Secondary table name (for overlap errors)
	Detail string // Additional details
	Err    error  // Sentinel
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Table2 != "" {
		return fmt.Sprintf("%s: tables %q and %q: %s", e.Type, e.Table, e.Table2, e.Detail)
	}
	if e.Table != "" {
		return fmt.Sprintf("%s: table %q: %s", e.Type, e.Table, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Detail)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
