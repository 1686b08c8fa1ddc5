package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParseFailure      = errors.New("parse failure")
	ErrInvalidStructure  = fmt.Errorf("invalid structure: %w", ErrParseFailure)
	ErrMissingReference  = errors.New("missing reference")
	ErrIOFailure         = errors.New("io failure")
	ErrPrecondition      = errors.New("precondition violated")
	ErrSQLUnavailable    = errors.New("SQL execution is not available")
)

// ImportError reports a failed import of a single file.
type ImportError struct {
	File   string
	Format string // "csv", "excel", "json", "parquet" or the raw extension
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %q (%s): %v", e.File, e.Format, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
