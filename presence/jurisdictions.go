package presence

import (
	"time"

	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// JURISDICTION PRESETS
// =============================================================================

const (
	CountryUK    generic.CountryCode = "GB"
	CountryChina generic.CountryCode = "CN"

	// DefaultThreshold is the 183-day trigger shared by both presets.
	DefaultThreshold = 183

	// DefaultBuffer is the early-warning count used by the presets.
	DefaultBuffer = 170
)

// Extended rule names reported as "not evaluated".
const (
	RuleStatutoryResidenceTest = "uk_statutory_residence_test"
	RuleSixYear                = "cn_six_year_rule"
)

// UKTaxYear is the 6 April - 5 April UK tax year.
var UKTaxYear = generic.PeriodConfig{
	Type:             generic.PeriodFiscalYear,
	FiscalStartMonth: time.April,
	FiscalStartDay:   6,
}

// UnitedKingdom counts GB days over a rolling 365-day window and reports
// the tax-year count alongside.
func UnitedKingdom() Jurisdiction {
	return Jurisdiction{
		Country: CountryUK,
		Name:    "United Kingdom",
		Window: generic.PeriodConfig{
			Type:        generic.PeriodRolling,
			RollingDays: 365,
		},
		Threshold:     DefaultThreshold,
		Buffer:        DefaultBuffer,
		ReportWindows: []generic.PeriodConfig{UKTaxYear},
		ExtendedRules: []string{RuleStatutoryResidenceTest},
		Note:          "UK residency is determined by the Statutory Residence Test (SRT). 183 days is a useful trigger, not the full test.",
	}
}

// UnitedKingdomTaxYear applies the 183-day trigger to the UK tax year
// instead of the rolling window.
func UnitedKingdomTaxYear() Jurisdiction {
	j := UnitedKingdom()
	j.Name = "United Kingdom (tax year)"
	j.Window = UKTaxYear
	j.ReportWindows = nil
	return j
}

// China counts CN days per calendar year.
func China() Jurisdiction {
	return Jurisdiction{
		Country:       CountryChina,
		Name:          "China",
		Window:        generic.PeriodConfig{Type: generic.PeriodCalendarYear},
		Threshold:     DefaultThreshold,
		Buffer:        DefaultBuffer,
		ExtendedRules: []string{RuleSixYear},
		Note:          "China IIT residency uses the calendar-year day count (183). The six-year rule needs consecutive-year tracking and the 30-day single-trip reset.",
	}
}

// Defaults returns the built-in jurisdictions, UK first.
func Defaults() []Jurisdiction {
	return []Jurisdiction{UnitedKingdom(), China()}
}
