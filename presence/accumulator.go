package presence

import "github.com/warp/residency-engine/generic"

// =============================================================================
// DAY-SET ACCUMULATOR
// =============================================================================

// DaysPresent returns the number of unique days in [start, end] covered by a
// stay in country. Ongoing stays are treated as lasting through end, never
// beyond it. Overlapping stays never count a day twice.
func DaysPresent(stays []generic.Stay, country generic.CountryCode, start, end generic.Date) int {
	return daySet(stays, country, start, end).Len()
}

// PresenceDays returns the days counted by DaysPresent, ascending.
func PresenceDays(stays []generic.Stay, country generic.CountryCode, start, end generic.Date) []generic.Date {
	return daySet(stays, country, start, end).Days()
}

func daySet(stays []generic.Stay, country generic.CountryCode, start, end generic.Date) *generic.DaySet {
	window := generic.Period{Start: start, End: end}
	set := generic.NewDaySet()
	for _, s := range stays {
		if s.Country != country {
			continue
		}
		overlap := s.Interval(end).Intersect(window)
		if overlap.IsEmpty() {
			continue
		}
		set.AddPeriod(overlap)
	}
	return set
}

// CountIn counts presence over period clamped to asOf. This is the single
// counting path shared by current-state reporting and forward simulation.
func CountIn(stays []generic.Stay, country generic.CountryCode, period generic.Period, asOf generic.Date) DayCount {
	window := period.Clamp(asOf)
	count := DayCount{Country: country, Period: period, Window: window}
	if window.IsEmpty() {
		return count
	}
	count.Days = DaysPresent(stays, country, window.Start, window.End)
	return count
}

// Count counts presence for j's configured window as of asOf.
func Count(stays []generic.Stay, j Jurisdiction, asOf generic.Date) DayCount {
	return CountIn(stays, j.Country, j.Window.PeriodFor(asOf), asOf)
}
