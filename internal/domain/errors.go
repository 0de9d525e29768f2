package domain

import (
	"errors"
	"fmt"
)

// FetchError wraps a network, HTTP status, or CSV parse failure while
// retrieving one source table. Retryable by the caller (re-run the pipeline).
type FetchError struct {
	Category Category
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SchemaError reports an unexpected source table shape: missing identity
// columns or no parseable date columns. Not retryable — it signals an
// upstream format change.
type SchemaError struct {
	Category Category
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table schema: %s", e.Category, e.Reason)
}

// ErrEmptyDataset is returned when merging produced no usable aggregate rows.
// Not retryable without source investigation; it must stop the pipeline
// rather than yield a silently empty dashboard.
var ErrEmptyDataset = errors.New("merged dataset is empty")

// ErrInvalidRange is returned when a query's start date is after its end
// date. Caller bug.
var ErrInvalidRange = errors.New("date range start is after end")
