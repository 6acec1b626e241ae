/*
Package generic provides the calendar primitives of the presence engine.

PURPOSE:
  This package contains jurisdiction-agnostic types: calendar dates, closed
  date periods, de-duplicated day sets and the stay record itself. Whether
  counting UK rolling days or China calendar-year days, the same primitives
  are used.

KEY CONCEPTS IN THIS FILE (types.go):
  - CountryCode: Jurisdiction code, matched exactly ("GB", "CN")
  - Stay: One continuous physical presence in a country

DESIGN PRINCIPLES:
  1. Immutability: Stays are read-only input; the engine copies, never mutates
  2. Whole days: Dates carry no time-of-day or timezone
  3. Inclusive bounds: Entry and exit days both count as present

USAGE:
  exit := generic.NewDate(2024, time.June, 30)
  stay := generic.Stay{
      Country: "GB",
      Entry:   generic.NewDate(2024, time.January, 1),
      Exit:    &exit,
  }

SEE ALSO:
  - period.go: Accounting windows
  - dayset.go: Day de-duplication
  - presence/accumulator.go: Counting days from stays
*/
package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// CountryCode identifies a jurisdiction. Matching is exact.
type CountryCode string

// NormalizeCountry trims and upper-cases user input ("gb " -> "GB").
func NormalizeCountry(s string) CountryCode {
	return CountryCode(strings.ToUpper(strings.TrimSpace(s)))
}

// =============================================================================
// STAY - One continuous physical presence
// =============================================================================

// Stay is a presence interval [Entry, Exit]. A nil Exit means the stay is
// still ongoing; counting treats it as lasting through the query window's end.
type Stay struct {
	ID      string      `json:"id,omitempty"`
	Country CountryCode `json:"country"`
	Entry   Date        `json:"entry"`
	Exit    *Date       `json:"exit,omitempty"`
	Note    string      `json:"note,omitempty"`
}

// IsOngoing reports whether the stay has no recorded exit.
func (s Stay) IsOngoing() bool { return s.Exit == nil }

// EffectiveEnd is the exit date, or windowEnd for an ongoing stay.
func (s Stay) EffectiveEnd(windowEnd Date) Date {
	if s.Exit == nil {
		return windowEnd
	}
	return *s.Exit
}

// Interval returns [Entry, EffectiveEnd(windowEnd)].
func (s Stay) Interval(windowEnd Date) Period {
	return Period{Start: s.Entry, End: s.EffectiveEnd(windowEnd)}
}

// Validate checks entry <= exit.
func (s Stay) Validate() error {
	if s.Country == "" {
		return fmt.Errorf("%w: missing country", ErrInvalidStay)
	}
	if s.Entry.IsZero() {
		return fmt.Errorf("%w: missing entry date", ErrInvalidStay)
	}
	if s.Exit != nil && s.Exit.Before(s.Entry) {
		return fmt.Errorf("%w: %s exits %s before entry %s", ErrInvalidStay, s.Country, s.Exit, s.Entry)
	}
	return nil
}

func (s Stay) String() string {
	exit := "ongoing"
	if s.Exit != nil {
		exit = s.Exit.String()
	}
	return fmt.Sprintf("%s %s..%s", s.Country, s.Entry, exit)
}

// CopyStays returns a copy of stays with room for extra more entries, so
// callers can append without touching the original backing array.
func CopyStays(stays []Stay, extra int) []Stay {
	out := make([]Stay, len(stays), len(stays)+extra)
	copy(out, stays)
	return out
}
