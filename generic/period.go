package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The accounting window presence is counted over
// =============================================================================

// Period is a closed date range [Start, End].
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - UK tax year 2025/26: Apr 6 2025 - Apr 5 2026
//   - Rolling 365 days ending Mar 1 2024: Mar 3 2023 - Mar 1 2024
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Len is the number of days in the period, inclusive of both ends.
// An inverted period has length 0.
func (p Period) Len() int {
	n := DaysBetween(p.Start, p.End) + 1
	if n < 0 {
		return 0
	}
	return n
}

// IsEmpty reports whether the period contains no days.
func (p Period) IsEmpty() bool { return p.End.Before(p.Start) }

// Days returns all days in the period.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Clamp caps End at asOf. Used when counting "days so far" in a period
// that extends into the future.
func (p Period) Clamp(asOf Date) Period {
	return Period{Start: p.Start, End: MinDate(p.End, asOf)}
}

// Intersect returns the overlap of p and other; the result may be empty.
func (p Period) Intersect(other Period) Period {
	return Period{Start: MaxDate(p.Start, other.Start), End: MinDate(p.End, other.End)}
}

// Validate rejects periods whose end is before their start.
func (p Period) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// BOUNDARY CALCULATOR - Pure functions, never clamp
// =============================================================================

// RollingWindow returns the inclusive windowDays-long window ending on asOf.
func RollingWindow(asOf Date, windowDays int) Period {
	return Period{Start: asOf.AddDays(-(windowDays - 1)), End: asOf}
}

// FiscalYearBounds returns the fiscal year containing today, for a year that
// starts every startMonth/startDay. The end is the next cycle's start minus
// one day, so leap days fall where the calendar puts them.
func FiscalYearBounds(today Date, startMonth time.Month, startDay int) Period {
	start := NewDate(today.Year(), startMonth, startDay)
	if today.Before(start) {
		start = NewDate(today.Year()-1, startMonth, startDay)
	}
	next := NewDate(start.Year()+1, startMonth, startDay)
	return Period{Start: start, End: next.AddDays(-1)}
}

// CalendarYearBounds returns Jan 1 - Dec 31 of today's year.
func CalendarYearBounds(today Date) Period {
	return Period{Start: StartOfYear(today.Year()), End: EndOfYear(today.Year())}
}

// PeriodType defines how periods are calculated
type PeriodType string

const (
	PeriodCalendarYear PeriodType = "calendar_year" // Jan 1 - Dec 31
	PeriodFiscalYear   PeriodType = "fiscal_year"   // Custom start (e.g., Apr 6)
	PeriodRolling      PeriodType = "rolling"       // Trailing N days
)

// DefaultRollingDays is the trailing window used when none is configured.
const DefaultRollingDays = 365

// PeriodConfig selects the window kind for a jurisdiction.
type PeriodConfig struct {
	Type PeriodType `json:"type" yaml:"type"`

	// For rolling: window length in days
	RollingDays int `json:"rolling_days,omitempty" yaml:"rolling_days,omitempty"`

	// For fiscal year: first day of the year
	FiscalStartMonth time.Month `json:"fiscal_start_month,omitempty" yaml:"fiscal_start_month,omitempty"`
	FiscalStartDay   int        `json:"fiscal_start_day,omitempty" yaml:"fiscal_start_day,omitempty"`
}

// PeriodFor returns the period anchored at date.
func (pc PeriodConfig) PeriodFor(date Date) Period {
	switch pc.Type {
	case PeriodRolling:
		n := pc.RollingDays
		if n <= 0 {
			n = DefaultRollingDays
		}
		return RollingWindow(date, n)

	case PeriodFiscalYear:
		return FiscalYearBounds(date, pc.FiscalStartMonth, pc.FiscalStartDay)

	default:
		return CalendarYearBounds(date)
	}
}

// Validate checks the window parameters before any computation uses them.
func (pc PeriodConfig) Validate() error {
	switch pc.Type {
	case PeriodCalendarYear:
		return nil

	case PeriodRolling:
		if pc.RollingDays < 0 {
			return &ConfigError{Field: "rolling_days", Reason: fmt.Sprintf("must be positive, got %d", pc.RollingDays)}
		}
		return nil

	case PeriodFiscalYear:
		if pc.FiscalStartMonth < time.January || pc.FiscalStartMonth > time.December {
			return &ConfigError{Field: "fiscal_start_month", Reason: fmt.Sprintf("must be 1-12, got %d", pc.FiscalStartMonth)}
		}
		// Feb 29 is rejected: the cycle start must exist every year.
		maxDay := DaysInMonth(2001, pc.FiscalStartMonth)
		if pc.FiscalStartDay < 1 || pc.FiscalStartDay > maxDay {
			return &ConfigError{
				Field:  "fiscal_start_day",
				Reason: fmt.Sprintf("day %d is not valid for %s", pc.FiscalStartDay, pc.FiscalStartMonth),
			}
		}
		return nil

	default:
		return &ConfigError{Field: "type", Reason: fmt.Sprintf("unknown period type %q", pc.Type)}
	}
}

func (pc PeriodConfig) String() string {
	switch pc.Type {
	case PeriodRolling:
		n := pc.RollingDays
		if n <= 0 {
			n = DefaultRollingDays
		}
		return fmt.Sprintf("rolling %d days", n)
	case PeriodFiscalYear:
		return fmt.Sprintf("fiscal year from %s %d", pc.FiscalStartMonth, pc.FiscalStartDay)
	default:
		return "calendar year"
	}
}
