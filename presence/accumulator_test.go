package presence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(s string) generic.Date {
	return generic.MustParseDate(s)
}

func stay(country, entry, exit string) generic.Stay {
	s := generic.Stay{Country: generic.CountryCode(country), Entry: date(entry)}
	if exit != "" {
		e := date(exit)
		s.Exit = &e
	}
	return s
}

func calendarYear(year string) generic.Period {
	return generic.CalendarYearBounds(date(year + "-06-01"))
}

// =============================================================================
// DAYS PRESENT
// =============================================================================

func TestDaysPresent_FirstHalfOf2024(t *testing.T) {
	// GIVEN: GB stay Jan 1 - Jun 30 2024 (leap year)
	// WHEN: Counting the 2024 calendar year
	// THEN: 182 days

	stays := []generic.Stay{stay("GB", "2024-01-01", "2024-06-30")}
	year := calendarYear("2024")

	assert.Equal(t, 182, presence.DaysPresent(stays, "GB", year.Start, year.End))
}

func TestDaysPresent_OverlappingStaysCountedOnce(t *testing.T) {
	stays := []generic.Stay{
		stay("GB", "2024-01-01", "2024-01-10"),
		stay("GB", "2024-01-05", "2024-01-15"),
		stay("GB", "2024-01-07", "2024-01-08"),
	}

	got := presence.DaysPresent(stays, "GB", date("2024-01-01"), date("2024-01-31"))
	assert.Equal(t, 15, got)
}

func TestDaysPresent_NeverExceedsWindow(t *testing.T) {
	// GIVEN: Many stays covering the same days
	// THEN: Count is bounded by the window length

	var stays []generic.Stay
	for i := 0; i < 10; i++ {
		stays = append(stays, stay("CN", "2024-12-01", "2025-02-01"))
	}
	window := generic.Period{Start: date("2025-01-01"), End: date("2025-01-20")}

	got := presence.DaysPresent(stays, "CN", window.Start, window.End)
	assert.Equal(t, window.Len(), got)
}

func TestDaysPresent_NonOverlappingEqualsSumOfClippedLengths(t *testing.T) {
	stays := []generic.Stay{
		stay("GB", "2023-12-20", "2024-01-03"), // clipped to 3 days
		stay("GB", "2024-02-27", "2024-03-02"), // 5 days across leap day
		stay("GB", "2024-12-30", "2025-01-04"), // clipped to 2 days
	}
	year := calendarYear("2024")

	want := 0
	for _, s := range stays {
		want += s.Interval(year.End).Intersect(year).Len()
	}
	assert.Equal(t, 10, want)
	assert.Equal(t, want, presence.DaysPresent(stays, "GB", year.Start, year.End))
}

func TestDaysPresent_OtherCountriesIgnored(t *testing.T) {
	stays := []generic.Stay{
		stay("CN", "2024-01-01", "2024-03-31"),
		stay("gb", "2024-01-01", "2024-03-31"), // exact match only
		stay("GB", "2024-04-01", "2024-04-02"),
	}
	year := calendarYear("2024")

	assert.Equal(t, 2, presence.DaysPresent(stays, "GB", year.Start, year.End))
	assert.Equal(t, 91, presence.DaysPresent(stays, "CN", year.Start, year.End))
}

func TestDaysPresent_OngoingStayEndsAtWindowEnd(t *testing.T) {
	// GIVEN: GB stay from Jun 1 2024 with no exit
	// WHEN: Counting windows ending Jun 10 and Jun 30
	// THEN: The stay only runs to each window's end

	stays := []generic.Stay{stay("GB", "2024-06-01", "")}

	assert.Equal(t, 10, presence.DaysPresent(stays, "GB", date("2024-01-01"), date("2024-06-10")))
	assert.Equal(t, 30, presence.DaysPresent(stays, "GB", date("2024-01-01"), date("2024-06-30")))
	assert.Equal(t, 0, presence.DaysPresent(stays, "GB", date("2024-01-01"), date("2024-05-31")))
}

func TestDaysPresent_MonotonicInWindowEnd(t *testing.T) {
	stays := []generic.Stay{
		stay("GB", "2024-01-15", "2024-02-10"),
		stay("GB", "2024-02-01", "2024-03-05"),
		stay("GB", "2024-05-01", ""),
	}
	start := date("2024-01-01")

	prev := 0
	for e := start; e.Before(date("2025-01-01")); e = e.AddDays(1) {
		got := presence.DaysPresent(stays, "GB", start, e)
		require.GreaterOrEqual(t, got, prev, "window end %s", e)
		prev = got
	}
}

func TestDaysPresent_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0, presence.DaysPresent(nil, "GB", date("2024-01-01"), date("2024-12-31")))
}

func TestPresenceDays_ListsUniqueDaysAscending(t *testing.T) {
	stays := []generic.Stay{
		stay("GB", "2024-03-01", "2024-03-02"),
		stay("GB", "2024-02-28", "2024-03-01"),
	}

	days := presence.PresenceDays(stays, "GB", date("2024-01-01"), date("2024-12-31"))
	assert.Equal(t, []generic.Date{
		date("2024-02-28"), date("2024-02-29"), date("2024-03-01"), date("2024-03-02"),
	}, days)
}

// =============================================================================
// COUNT IN PERIOD
// =============================================================================

func TestCountIn_ClampsToAsOf(t *testing.T) {
	// GIVEN: An ongoing stay and a calendar year still in progress
	// WHEN: Counting days so far as of Mar 10
	// THEN: The open stay is not extended past Mar 10

	stays := []generic.Stay{stay("CN", "2025-03-01", "")}
	year := calendarYear("2025")

	count := presence.CountIn(stays, "CN", year, date("2025-03-10"))

	assert.Equal(t, 10, count.Days)
	assert.Equal(t, year, count.Period)
	assert.Equal(t, date("2025-03-10"), count.Window.End)
}

func TestCountIn_AsOfBeforePeriod(t *testing.T) {
	stays := []generic.Stay{stay("CN", "2024-01-01", "")}
	count := presence.CountIn(stays, "CN", calendarYear("2025"), date("2024-12-31"))
	assert.Equal(t, 0, count.Days)
}

func TestCount_UsesJurisdictionWindow(t *testing.T) {
	stays := []generic.Stay{stay("GB", "2024-04-01", "2024-04-10")}

	uk := presence.UnitedKingdomTaxYear()
	count := presence.Count(stays, uk, date("2024-04-10"))

	// Tax year 2024/25 starts Apr 6
	assert.Equal(t, 5, count.Days)
	assert.Equal(t, date("2024-04-06"), count.Period.Start)
	assert.Equal(t, date("2025-04-05"), count.Period.End)

	rolling := presence.Count(stays, presence.UnitedKingdom(), date("2024-04-10"))
	assert.Equal(t, 10, rolling.Days)
}
