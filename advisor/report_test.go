package advisor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/advisor"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/generic/store"
	"github.com/warp/residency-engine/presence"
)

func date(y int, m time.Month, d int) generic.Date {
	return generic.NewDate(y, m, d)
}

func closed(country generic.CountryCode, entry, exit generic.Date) generic.Stay {
	return generic.Stay{Country: country, Entry: entry, Exit: &exit}
}

// =============================================================================
// REPORT
// =============================================================================

func TestBuildReport_UKApproachingChinaSafe(t *testing.T) {
	// GIVEN: 181 GB days in the first half of 2025, no CN days
	// WHEN: Building the report as of 2025-06-30
	// THEN: GB is APPROACHING, CN is SAFE, and the projection starts tomorrow

	stays := []generic.Stay{
		closed("GB", date(2025, time.January, 1), date(2025, time.June, 30)),
	}
	asOf := date(2025, time.June, 30)

	report, err := advisor.BuildReport(context.Background(), stays, presence.Defaults(), asOf, advisor.DefaultOptions())
	require.NoError(t, err)

	// KPI
	require.Len(t, report.KPI.Jurisdictions, 2)
	gb := report.KPI.Jurisdictions[0]
	assert.Equal(t, 181, gb.Primary.Days)
	assert.Equal(t, date(2024, time.July, 1), gb.Primary.Window.Start)
	require.Len(t, gb.Windows, 1)
	assert.Equal(t, 86, gb.Windows[0].Days, "tax year 2025-04-06..2025-06-30")
	assert.Equal(t, date(2026, time.April, 5), gb.Windows[0].Period.End)
	assert.Equal(t, 181, gb.CalendarYear.Days)
	assert.Equal(t, 0, report.KPI.Jurisdictions[1].Primary.Days)

	// Thresholds
	gbThreshold := report.Thresholds.Jurisdictions[0]
	assert.False(t, gbThreshold.ThresholdMet)
	assert.Equal(t, 2, gbThreshold.Remaining)
	assert.Equal(t, []string{presence.RuleStatutoryResidenceTest}, gbThreshold.NotEvaluated)
	assert.Equal(t, []string{presence.RuleSixYear}, report.Thresholds.Jurisdictions[1].NotEvaluated)

	// Advisor
	require.Len(t, report.Advisor.Statuses, 2)
	assert.Equal(t, presence.StatusApproaching, report.Advisor.Statuses[0].Status)
	assert.Equal(t, presence.StatusSafe, report.Advisor.Statuses[1].Status)
	require.Len(t, report.Advisor.Advice, 2)
	assert.Contains(t, report.Advisor.Advice[1], "short move to CN")

	// Autopilot
	assert.Equal(t, date(2025, time.July, 1), report.Autopilot.Assumptions.StartDay)
	require.Len(t, report.Autopilot.Jurisdictions, 2)

	gbSim := report.Autopilot.Jurisdictions[0]
	assert.Equal(t, 181, gbSim.CurrentDays)
	require.True(t, gbSim.Buffer.Reached)
	assert.Equal(t, date(2025, time.July, 1), *gbSim.Buffer.TriggerDate)
	require.True(t, gbSim.Threshold.Reached)
	assert.Equal(t, date(2025, time.July, 2), *gbSim.Threshold.TriggerDate)
	assert.Equal(t, 1, gbSim.Threshold.DaysForward)

	cnSim := report.Autopilot.Jurisdictions[1]
	require.True(t, cnSim.Buffer.Reached)
	assert.Equal(t, date(2025, time.December, 17), *cnSim.Buffer.TriggerDate)
	require.True(t, cnSim.Threshold.Reached)
	assert.Equal(t, date(2025, time.December, 30), *cnSim.Threshold.TriggerDate)
	assert.Equal(t, 183, cnSim.Threshold.CountOnTrigger)

	assert.Len(t, report.Autopilot.RecommendedMoves, 4)
	assert.Empty(t, report.Skipped)
}

func TestBuildReportFromStore(t *testing.T) {
	// GIVEN: The same GB stay held in a stay store
	// THEN: The report matches one built from the slice

	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.AppendStay(ctx, closed("GB", date(2025, time.January, 1), date(2025, time.June, 30)))
	require.NoError(t, err)

	report, err := advisor.BuildReportFromStore(ctx, mem, presence.Defaults(), date(2025, time.June, 30), advisor.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 181, report.KPI.Jurisdictions[0].Primary.Days)
	assert.Equal(t, presence.StatusApproaching, report.Advisor.Statuses[0].Status)
}

func TestBuildReport_DoesNotMutateStays(t *testing.T) {
	stays := []generic.Stay{
		{Country: "GB", Entry: date(2025, time.March, 1)},
	}
	before := append([]generic.Stay(nil), stays...)

	_, err := advisor.BuildReport(context.Background(), stays, presence.Defaults(),
		date(2025, time.June, 1), advisor.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, before, stays)
	assert.Nil(t, stays[0].Exit)
}

func TestBuildReport_InvalidJurisdiction(t *testing.T) {
	broken := presence.China()
	broken.Buffer = 190

	jurisdictions := []presence.Jurisdiction{presence.UnitedKingdom(), broken}
	asOf := date(2025, time.June, 30)

	// WHEN: Not skipping, the ConfigError aborts the build
	_, err := advisor.BuildReport(context.Background(), nil, jurisdictions, asOf, advisor.DefaultOptions())
	var cfgErr *generic.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CN", cfgErr.Scope)

	// WHEN: Skipping, the rest of the report is produced
	opts := advisor.DefaultOptions()
	opts.SkipInvalid = true
	report, err := advisor.BuildReport(context.Background(), nil, jurisdictions, asOf, opts)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, generic.CountryCode("CN"), report.Skipped[0].Country)
	assert.Len(t, report.KPI.Jurisdictions, 1)
	assert.Len(t, report.Autopilot.Jurisdictions, 1)
}

func TestBuildReport_HorizonExhausted(t *testing.T) {
	// GIVEN: A 10-day horizon, far too short to reach 183 from nothing
	// THEN: Not reached is data, not an error

	opts := advisor.DefaultOptions()
	opts.HorizonDays = 10

	report, err := advisor.BuildReport(context.Background(), nil,
		[]presence.Jurisdiction{presence.UnitedKingdom()}, date(2025, time.June, 30), opts)
	require.NoError(t, err)

	sim := report.Autopilot.Jurisdictions[0].Threshold
	assert.False(t, sim.Reached)
	assert.Nil(t, sim.TriggerDate)
	assert.Equal(t, presence.NoteNotReached, sim.Note)
	assert.Empty(t, report.Autopilot.RecommendedMoves)
}

func TestBuildReport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := advisor.BuildReport(ctx, nil, presence.Defaults(), date(2025, time.June, 30), advisor.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildReport_JSONShape(t *testing.T) {
	report, err := advisor.BuildReport(context.Background(), nil, presence.Defaults(),
		date(2025, time.June, 30), advisor.DefaultOptions())
	require.NoError(t, err)

	data, err := json.Marshal(report.Autopilot.Jurisdictions[0].Buffer)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2025-07-01", doc["start_day"])
	assert.Contains(t, doc, "trigger_date")
	assert.Contains(t, doc, "trace")
}
