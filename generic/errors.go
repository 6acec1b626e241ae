/*
errors.go - Centralized error types for the presence engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these errors with additional context.

ERROR CATEGORIES:
  1. Parse errors  - A date string is not a valid calendar date
  2. Config errors - Threshold or window configuration is inconsistent
  3. Store errors  - Missing records

NOT AN ERROR:
  A forward simulation that never reaches its target within the horizon
  is a normal outcome and is returned as data (see presence/simulate.go).

USAGE:
  var pe *generic.ParseError
  if errors.As(err, &pe) {
      fmt.Println("bad record:", pe.Record, pe.Field)
  }

SEE ALSO:
  - period.go: PeriodConfig.Validate returns ConfigError
  - time.go: ParseDate returns ParseError
  - factory/ledger.go: Adds record context to both
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD or
	// names a day that does not exist.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidConfig is returned when threshold or window configuration
	// is internally inconsistent.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidStay is returned when a stay lacks a country or entry, or exits
	// before it enters.
	ErrInvalidStay = errors.New("invalid stay")

	// ErrDuplicateStay is returned when a stay ID is already stored.
	ErrDuplicateStay = errors.New("duplicate stay id")

	// ErrStayNotFound is returned when a referenced stay doesn't exist.
	ErrStayNotFound = errors.New("stay not found")

	// ErrJurisdictionNotFound is returned when no configuration exists for a country.
	ErrJurisdictionNotFound = errors.New("jurisdiction not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseError reports a date that could not be parsed. Record and Field are
// filled in by whoever knows where the value came from.
type ParseError struct {
	Record string // e.g. "stays[3]"
	Field  string // e.g. "entry"
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Field
	if e.Record != "" {
		where = e.Record + "." + e.Field
	}
	if where == "" {
		return fmt.Sprintf("invalid date %q", e.Value)
	}
	return fmt.Sprintf("%s: invalid date %q", where, e.Value)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidDate
}

// ConfigError reports an inconsistent threshold or window setting.
type ConfigError struct {
	Scope  string // e.g. jurisdiction country code
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("invalid configuration for %s: %s: %s", e.Scope, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// WithRecord returns a copy of the error located at record/field.
func (e *ParseError) WithRecord(record, field string) *ParseError {
	c := *e
	c.Record = record
	c.Field = field
	return &c
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidStay)
}

// IsConflict returns true if the write collides with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateStay)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStayNotFound) ||
		errors.Is(err, ErrJurisdictionNotFound)
}
