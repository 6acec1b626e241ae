package presence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

var (
	calendarMode = generic.PeriodConfig{Type: generic.PeriodCalendarYear}
	rollingMode  = generic.PeriodConfig{Type: generic.PeriodRolling, RollingDays: 365}
)

// =============================================================================
// TRIGGER DATES
// =============================================================================

func TestSimulateReach_ContinuesAfterFirstHalfYear(t *testing.T) {
	// GIVEN: 182 GB days in Jan-Jun 2024
	// WHEN: Simulating continuous presence from Jul 1
	// THEN: Jul 1 itself is day 183; day 184 arrives one day later

	stays := []generic.Stay{stay("GB", "2024-01-01", "2024-06-30")}
	start := date("2024-07-01")

	at183 := presence.SimulateReach(stays, "GB", start, 183, calendarMode, presence.DefaultHorizonDays)
	require.True(t, at183.Reached)
	assert.Equal(t, date("2024-07-01"), *at183.TriggerDate)
	assert.Equal(t, 0, at183.DaysForward)
	assert.Equal(t, 183, at183.CountOnTrigger)

	at184 := presence.SimulateReach(stays, "GB", start, 184, calendarMode, presence.DefaultHorizonDays)
	require.True(t, at184.Reached)
	assert.Equal(t, date("2024-07-02"), *at184.TriggerDate)
	assert.Equal(t, 1, at184.DaysForward)
	assert.Equal(t, 184, at184.CountOnTrigger)
}

func TestSimulateReach_TargetAlreadyMet(t *testing.T) {
	// GIVEN: Current count of 182 on the day before the simulation
	// WHEN: Target is at or below that count
	// THEN: Trigger is the start day with zero days forward

	stays := []generic.Stay{stay("GB", "2024-01-01", "2024-06-30")}
	start := date("2024-07-01")

	current := presence.CountIn(stays, "GB", generic.CalendarYearBounds(start), start.AddDays(-1))
	require.Equal(t, 182, current.Days)

	for _, target := range []int{1, 150, 182} {
		res := presence.SimulateReach(stays, "GB", start, target, calendarMode, presence.DefaultHorizonDays)
		require.True(t, res.Reached)
		assert.Equal(t, start, *res.TriggerDate)
		assert.Equal(t, 0, res.DaysForward)
	}
}

func TestSimulateReach_RollingFromNothing(t *testing.T) {
	// GIVEN: No prior GB presence
	// WHEN: Simulating 183 rolling days from Jan 1 2025
	// THEN: Day 183 is Jul 2 2025, 182 days forward

	start := date("2025-01-01")
	res := presence.SimulateReach(nil, "GB", start, 183, rollingMode, presence.DefaultHorizonDays)

	require.True(t, res.Reached)
	assert.Equal(t, date("2025-07-02"), *res.TriggerDate)
	assert.Equal(t, 182, res.DaysForward)
	assert.Equal(t, 183, res.CountOnTrigger)

	// Checkpoints 0,1,7,30,60,120 plus the four days within margin
	require.Len(t, res.Trace, 10)
	assert.Equal(t, presence.TraceSample{Day: start, Count: 1, WindowStart: start.AddDays(-364)}, res.Trace[0])
	assert.Equal(t, 2, res.Trace[1].Count)
	assert.Equal(t, 8, res.Trace[2].Count)
	last := res.Trace[len(res.Trace)-1]
	assert.Equal(t, date("2025-07-02"), last.Day)
	assert.Equal(t, 183, last.Count)
	assert.Equal(t, 180, res.Trace[6].Count)
}

func TestSimulateReach_RollingWindowDropsOldDays(t *testing.T) {
	// GIVEN: 100 GB days that are about to leave the rolling window
	// WHEN: Simulating from the day the oldest day would roll off
	// THEN: The count does not simply add; old days age out as new ones arrive

	stays := []generic.Stay{stay("GB", "2024-01-01", "2024-04-09")} // 100 days
	start := date("2024-12-31")                                     // window starts 2024-01-02

	res := presence.SimulateReach(stays, "GB", start, 120, rollingMode, presence.DefaultHorizonDays)
	require.True(t, res.Reached)

	// Each new day pushes one old day out until Apr 9 2024 leaves the window
	// (on Apr 9 2025), after which count grows by one per day.
	assert.Equal(t, date("2025-04-29"), *res.TriggerDate)
	assert.Equal(t, 119, res.DaysForward)
	assert.Equal(t, 120, res.CountOnTrigger)
}

func TestSimulateReach_CalendarYearResets(t *testing.T) {
	// GIVEN: No CN presence, simulation starting Dec 1
	// THEN: The January reset means 183 is reached on Jul 2 of next year

	start := date("2025-12-01")
	res := presence.SimulateReach(nil, "CN", start, 183, calendarMode, presence.DefaultHorizonDays)

	require.True(t, res.Reached)
	assert.Equal(t, date("2026-07-02"), *res.TriggerDate)
	assert.Equal(t, 31+182, res.DaysForward)
	assert.Equal(t, generic.StartOfYear(2026), res.Trace[len(res.Trace)-1].WindowStart)
}

func TestSimulateReach_FiscalYearWindow(t *testing.T) {
	stays := []generic.Stay{stay("GB", "2025-04-06", "2025-05-05")} // 30 days
	start := date("2025-06-01")

	res := presence.SimulateReach(stays, "GB", start, 40, presence.UKTaxYear, presence.DefaultHorizonDays)

	require.True(t, res.Reached)
	assert.Equal(t, date("2025-06-10"), *res.TriggerDate)
	assert.Equal(t, 9, res.DaysForward)
}

// =============================================================================
// NOT REACHED
// =============================================================================

func TestSimulateReach_HorizonExhausted(t *testing.T) {
	// GIVEN: A short horizon
	// WHEN: Target cannot be reached in time
	// THEN: Result is data, not an error, with the partial trace

	start := date("2025-01-01")
	res := presence.SimulateReach(nil, "GB", start, 183, rollingMode, 10)

	assert.False(t, res.Reached)
	assert.Nil(t, res.TriggerDate)
	assert.Equal(t, presence.NoteNotReached, res.Note)
	assert.Equal(t, 10, res.HorizonDays)
	require.Len(t, res.Trace, 3) // days 0, 1, 7
	assert.Equal(t, start.AddDays(7), res.Trace[2].Day)
}

func TestSimulateReach_ZeroHorizonChecksStartDayOnly(t *testing.T) {
	res := presence.SimulateReach(nil, "GB", date("2025-01-01"), 1, rollingMode, 0)
	assert.True(t, res.Reached)

	res = presence.SimulateReach(nil, "GB", date("2025-01-01"), 2, rollingMode, 0)
	assert.False(t, res.Reached)
	assert.Len(t, res.Trace, 1)
}

func TestSimulateReach_NegativeHorizonUsesDefault(t *testing.T) {
	res := presence.SimulateReach(nil, "GB", date("2025-01-01"), 1000, rollingMode, -1)
	assert.False(t, res.Reached)
	assert.Equal(t, presence.DefaultHorizonDays, res.HorizonDays)
}

func TestSimulateReach_TraceBounded(t *testing.T) {
	// GIVEN: A rolling count that plateaus at 365
	// WHEN: Target is unreachable but within margin for hundreds of days
	// THEN: Only the last TraceLimit samples are kept

	res := presence.SimulateReach(nil, "GB", date("2025-01-01"), 366, rollingMode, 800)

	assert.False(t, res.Reached)
	require.Len(t, res.Trace, presence.TraceLimit)
	assert.Equal(t, date("2025-01-01").AddDays(800), res.Trace[presence.TraceLimit-1].Day)
}

// =============================================================================
// PURITY
// =============================================================================

func TestSimulateReach_Idempotent(t *testing.T) {
	stays := []generic.Stay{
		stay("GB", "2024-03-01", "2024-05-31"),
		stay("GB", "2024-09-01", ""),
	}
	start := date("2024-10-01")

	first := presence.SimulateReach(stays, "GB", start, 183, rollingMode, presence.DefaultHorizonDays)
	second := presence.SimulateReach(stays, "GB", start, 183, rollingMode, presence.DefaultHorizonDays)

	assert.Equal(t, first, second)
}

func TestSimulateReach_DoesNotMutateStays(t *testing.T) {
	// GIVEN: A stay slice with spare capacity
	// THEN: Neither the elements nor the spare backing array are written

	backing := make([]generic.Stay, 1, 4)
	backing[0] = stay("GB", "2024-01-01", "2024-02-01")
	snapshot := backing[0]
	exit := *snapshot.Exit

	presence.SimulateReach(backing, "GB", date("2024-03-01"), 50, rollingMode, presence.DefaultHorizonDays)

	assert.Len(t, backing, 1)
	assert.Equal(t, snapshot.Entry, backing[0].Entry)
	assert.Equal(t, exit, *backing[0].Exit)
	assert.Equal(t, generic.Stay{}, backing[:2][1])
}

func TestSimulateReach_OverlapWithRealStay(t *testing.T) {
	// GIVEN: A real ongoing CN stay overlapping the simulated one
	// THEN: Days are not double counted

	stays := []generic.Stay{stay("CN", "2025-01-01", "")}
	res := presence.SimulateReach(stays, "CN", date("2025-01-01"), 183, calendarMode, presence.DefaultHorizonDays)

	require.True(t, res.Reached)
	assert.Equal(t, date("2025-07-02"), *res.TriggerDate)
}

// =============================================================================
// PROJECTION
// =============================================================================

func TestProject_BufferBeforeThreshold(t *testing.T) {
	uk := presence.UnitedKingdom()
	p, err := presence.Project(nil, uk, date("2025-01-01"), presence.DefaultHorizonDays)
	require.NoError(t, err)

	assert.Equal(t, presence.CountryUK, p.Country)
	assert.Equal(t, date("2025-06-19"), *p.Buffer.TriggerDate)
	assert.Equal(t, date("2025-07-02"), *p.Threshold.TriggerDate)
	assert.Equal(t, 13, p.Threshold.DaysForward-p.Buffer.DaysForward)
}

func TestProject_InvalidJurisdiction(t *testing.T) {
	bad := presence.China()
	bad.Buffer = 200

	_, err := presence.Project(nil, bad, date("2025-01-01"), 10)
	var cfgErr *generic.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CN", cfgErr.Scope)
}
