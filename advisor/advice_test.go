package advisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/residency-engine/advisor"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

func evaluation(t *testing.T, j presence.Jurisdiction, days int) presence.Evaluation {
	t.Helper()
	e, err := presence.Evaluate(j, presence.DayCount{Country: j.Country, Days: days})
	require.NoError(t, err)
	return e
}

func TestAdvise(t *testing.T) {
	uk, cn := presence.UnitedKingdom(), presence.China()
	windows := []generic.PeriodConfig{uk.Window, cn.Window}
	asOf := date(2025, time.June, 30)

	tests := []struct {
		name     string
		ukDays   int
		cnDays   int
		statuses []presence.Status
		advice   []string
	}{
		{
			name:     "both safe",
			ukDays:   20,
			cnDays:   40,
			statuses: []presence.Status{presence.StatusSafe, presence.StatusSafe},
			advice:   []string{"All thresholds currently safe: free to schedule."},
		},
		{
			name:     "UK approaching, China safe",
			ukDays:   175,
			cnDays:   10,
			statuses: []presence.Status{presence.StatusApproaching, presence.StatusSafe},
			advice: []string{
				"GB count over rolling 365 days is 175, approaching 183: consider scheduling travel outside GB.",
				"-> GB approaching: consider a short move to CN or a third country.",
			},
		},
		{
			name:     "China approaching, UK safe",
			ukDays:   0,
			cnDays:   171,
			statuses: []presence.Status{presence.StatusSafe, presence.StatusApproaching},
			advice: []string{
				"CN count over calendar year is 171, approaching 183: consider scheduling travel outside CN.",
				"-> CN approaching: consider a short move to GB or a third country.",
			},
		},
		{
			name:     "UK high risk, China approaching",
			ukDays:   200,
			cnDays:   180,
			statuses: []presence.Status{presence.StatusHighRisk, presence.StatusApproaching},
			advice: []string{
				"GB count over rolling 365 days is 200, threshold 183 reached: consider reducing GB presence.",
				"CN count over calendar year is 180, approaching 183: consider scheduling travel outside CN.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evals := []presence.Evaluation{evaluation(t, uk, tt.ukDays), evaluation(t, cn, tt.cnDays)}

			section := advisor.Advise(asOf, evals, windows)

			assert.Equal(t, advisor.ModeBalancedGlobal, section.Mode)
			require.Len(t, section.Statuses, 2)
			assert.Equal(t, tt.statuses[0], section.Statuses[0].Status)
			assert.Equal(t, tt.statuses[1], section.Statuses[1].Status)
			assert.Equal(t, tt.advice, section.Advice)
		})
	}
}

func TestAdvise_Empty(t *testing.T) {
	section := advisor.Advise(date(2025, time.June, 30), nil, nil)
	assert.Empty(t, section.Statuses)
	assert.Empty(t, section.Advice)
}
