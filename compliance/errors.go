/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All engine error types in one place. The calling request layer decides
  whether to retry or surface; the engine itself never retries.

ERROR CATEGORIES:
  1. DataUnavailable - the waiver/leave source could not be reached.
     Never converted to "no waivers": that would silently strip protection
     from members on leave. Fails closed.
  2. InvalidPeriod - inverted date bounds, rejected at construction so the
     month-coverage calculator never sees them.
  3. AtomicityFailure - the coordinator's paired LOA/waiver write could not
     complete atomically; the LOA write must not be considered committed.

USAGE:
  if errors.Is(err, compliance.ErrDataUnavailable) { ... }
*/
package compliance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDataUnavailable is returned when the waiver/leave data source
	// cannot be reached. Callers must propagate it, never treat it as an
	// empty waiver list.
	ErrDataUnavailable = errors.New("waiver data source unavailable")

	// ErrInvalidPeriod is returned when a waiver or window has
	// start_date > end_date.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrAtomicityFailure is returned when the LOA/waiver paired write
	// could not be completed atomically.
	ErrAtomicityFailure = errors.New("leave/waiver writes could not be committed atomically")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DataUnavailableError wraps the underlying store failure with the source
// that failed.
type DataUnavailableError struct {
	Source string // "leaves_of_absence", "training_waivers", ...
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data source %q unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// InvalidPeriodError reports the offending bounds.
type InvalidPeriodError struct {
	Start Date
	End   Date
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: start %s after end %s", e.Start, e.End)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriod }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable always returns false: none of the engine's errors are
// retryable from within the engine. The request layer owns retry policy.
func IsRetryable(error) bool { return false }
