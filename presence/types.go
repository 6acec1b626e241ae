/*
Package presence implements day-count residency accounting.

PURPOSE:
  Turns a ledger of stays into exact day counts over accounting windows,
  classifies those counts against a jurisdiction's threshold, and projects
  forward to the first date continuous presence would reach a target.

COMPONENTS:
  accumulator.go:   Stays -> unique day set -> count (single counting path)
  threshold.go:     Count -> SAFE / APPROACHING / HIGH_RISK
  simulate.go:      Forward search for the first day a target is reached
  jurisdictions.go: UK and China presets

SCOPE:
  Only the 183-day style count is implemented. Multi-factor tests (UK
  Statutory Residence Test, China's six-year rule) are named on the
  Jurisdiction via ExtendedRules so reports can flag them as not evaluated.

PURITY:
  Nothing in this package performs I/O, reads the clock or mutates its
  inputs. Equal inputs give equal outputs.

SEE ALSO:
  - generic/period.go: Window boundaries
  - advisor/report.go: Report assembly on top of this package
*/
package presence

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// DAY COUNT
// =============================================================================

// DayCount is a count together with the window that produced it.
type DayCount struct {
	Country generic.CountryCode `json:"country"`
	Days    int                 `json:"days"`

	// Period is the full accounting period; Window is the part of it that
	// was counted (Period clamped to the as-of date).
	Period generic.Period `json:"period"`
	Window generic.Period `json:"window"`
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the risk classification of a day count.
type Status string

const (
	StatusSafe        Status = "SAFE"
	StatusApproaching Status = "APPROACHING"
	StatusHighRisk    Status = "HIGH_RISK"
)

// =============================================================================
// JURISDICTION - Threshold configuration
// =============================================================================

// Jurisdiction holds the day-count test of one country.
type Jurisdiction struct {
	Country generic.CountryCode `json:"country"`
	Name    string              `json:"name"`

	// Window is the accounting period the threshold applies to.
	Window generic.PeriodConfig `json:"window"`

	// Threshold is the day count at which the test is met (e.g. 183).
	// Buffer is the early-warning count, strictly below Threshold.
	Threshold int `json:"threshold"`
	Buffer    int `json:"buffer"`

	// ReportWindows are extra periods counted for information only
	// (e.g. the UK tax year next to the rolling window).
	ReportWindows []generic.PeriodConfig `json:"report_windows,omitempty"`

	// ExtendedRules names statutory tests this count only approximates.
	ExtendedRules []string `json:"extended_rules,omitempty"`
	Note          string   `json:"note,omitempty"`
}

// Validate checks the configuration before any computation uses it.
func (j Jurisdiction) Validate() error {
	scope := string(j.Country)
	if j.Country == "" {
		return &generic.ConfigError{Field: "country", Reason: "must not be empty"}
	}
	if j.Threshold <= 0 {
		return &generic.ConfigError{Scope: scope, Field: "threshold", Reason: fmt.Sprintf("must be positive, got %d", j.Threshold)}
	}
	if j.Buffer < 0 || j.Buffer >= j.Threshold {
		return &generic.ConfigError{
			Scope:  scope,
			Field:  "buffer",
			Reason: fmt.Sprintf("must be in [0, %d), got %d", j.Threshold, j.Buffer),
		}
	}
	if err := scoped(j.Window.Validate(), scope); err != nil {
		return err
	}
	for _, w := range j.ReportWindows {
		if err := scoped(w.Validate(), scope); err != nil {
			return err
		}
	}
	return nil
}

func scoped(err error, scope string) error {
	if ce, ok := err.(*generic.ConfigError); ok && ce.Scope == "" {
		c := *ce
		c.Scope = scope
		return &c
	}
	return err
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluation is a classified day count.
type Evaluation struct {
	Count        DayCount `json:"count"`
	Threshold    int      `json:"threshold"`
	Buffer       int      `json:"buffer"`
	Status       Status   `json:"status"`
	ThresholdMet bool     `json:"threshold_met"`

	// Remaining is the number of further days before the threshold is met.
	Remaining int `json:"remaining"`

	// Utilization is Days / Threshold, rounded to 4 places.
	Utilization decimal.Decimal `json:"utilization"`
}

// =============================================================================
// SIMULATION
// =============================================================================

// TraceSample is one recorded step of a forward simulation.
type TraceSample struct {
	Day         generic.Date `json:"day"`
	Count       int          `json:"count"`
	WindowStart generic.Date `json:"window_start"`
}

// SimulationResult is the outcome of SimulateReach. Not reaching the target
// within the horizon is a valid outcome: Reached is false, TriggerDate is
// nil and Trace holds the samples collected.
type SimulationResult struct {
	Country     generic.CountryCode `json:"country"`
	StartDay    generic.Date        `json:"start_day"`
	Target      int                 `json:"target"`
	HorizonDays int                 `json:"horizon_days"`

	Reached        bool          `json:"reached"`
	TriggerDate    *generic.Date `json:"trigger_date"`
	DaysForward    int           `json:"days_forward"`
	CountOnTrigger int           `json:"count_on_trigger"`
	Trace          []TraceSample `json:"trace"`
	Note           string        `json:"note,omitempty"`
}

// Projection pairs the buffer and threshold simulations of a jurisdiction.
type Projection struct {
	Country   generic.CountryCode `json:"country"`
	Buffer    SimulationResult    `json:"buffer"`
	Threshold SimulationResult    `json:"threshold"`
}
