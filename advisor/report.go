/*
Package advisor assembles presence reports on top of the presence engine.

PURPOSE:
  One call turns a stay ledger and a set of jurisdictions into the four
  documents a user reads: current counts, threshold status, advice and
  forward projections.

SECTIONS:
  KPI:        Day counts for each jurisdiction's window, its report
              windows and the calendar year       (kpi_presence.json)
  Thresholds: Count vs threshold, notes, rules not evaluated
                                                  (kpi_thresholds.json)
  Advisor:    SAFE / APPROACHING / HIGH_RISK plus cross-jurisdiction
              advice                              (dual_advisor.json)
  Autopilot:  First dates the buffer and threshold are reached if presence
              continues from the start day        (residency_autopilot.json)

CONCURRENCY:
  Autopilot simulations are independent and run in an errgroup. Each
  goroutine writes only its own result slot. The stays slice is shared
  read-only; presence.SimulateReach copies it.

INVALID JURISDICTIONS:
  By default the first invalid jurisdiction aborts the build with its
  ConfigError. With SkipInvalid it is listed under Skipped instead and the
  rest of the report is produced.

SEE ALSO:
  - presence/simulate.go: Forward simulation
  - advice.go: Advice rules
  - cmd/presence: Writes the sections to disk
*/
package advisor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options control report assembly.
type Options struct {
	// HorizonDays bounds each simulation. Zero or negative uses
	// presence.DefaultHorizonDays.
	HorizonDays int

	// StartOffsetDays moves the simulation start away from the as-of date.
	// The as-of day is already part of the current count, so 1 is usual.
	StartOffsetDays int

	// CountMethod is copied into the autopilot assumptions.
	CountMethod string

	SkipInvalid bool
	Logger      zerolog.Logger
}

// DefaultOptions simulates from the day after as-of with the default horizon.
func DefaultOptions() Options {
	return Options{
		HorizonDays:     presence.DefaultHorizonDays,
		StartOffsetDays: 1,
		CountMethod:     "inclusive",
		Logger:          zerolog.Nop(),
	}
}

// =============================================================================
// REPORT
// =============================================================================

// Report is the full output of BuildReport.
type Report struct {
	AsOf       generic.Date     `json:"as_of"`
	KPI        KPISection       `json:"kpi"`
	Thresholds ThresholdSection `json:"thresholds"`
	Advisor    AdvisorSection   `json:"advisor"`
	Autopilot  AutopilotSection `json:"autopilot"`
	Skipped    []SkippedCountry `json:"skipped,omitempty"`
}

// SkippedCountry records a jurisdiction left out because its configuration
// is invalid.
type SkippedCountry struct {
	Country generic.CountryCode `json:"country"`
	Error   string              `json:"error"`
}

// KPISection is the kpi_presence.json document.
type KPISection struct {
	AsOf          generic.Date `json:"as_of"`
	Jurisdictions []KPIEntry   `json:"jurisdictions"`
}

// KPIEntry holds every count reported for one jurisdiction.
type KPIEntry struct {
	Country      generic.CountryCode `json:"country"`
	Name         string              `json:"name"`
	Primary      WindowCount         `json:"primary"`
	Windows      []WindowCount       `json:"windows,omitempty"`
	CalendarYear presence.DayCount   `json:"calendar_year"`
}

// WindowCount is a day count labelled with the window that produced it.
type WindowCount struct {
	Label string `json:"label"`
	presence.DayCount
}

// ThresholdSection is the kpi_thresholds.json document.
type ThresholdSection struct {
	AsOf          generic.Date     `json:"as_of"`
	Jurisdictions []ThresholdEntry `json:"jurisdictions"`
}

// ThresholdEntry is one classified count. NotEvaluated lists the statutory
// tests the day count does not cover.
type ThresholdEntry struct {
	Country      generic.CountryCode `json:"country"`
	Days         int                 `json:"days"`
	Threshold    int                 `json:"threshold"`
	Buffer       int                 `json:"buffer"`
	ThresholdMet bool                `json:"threshold_met"`
	Remaining    int                 `json:"remaining"`
	Utilization  decimal.Decimal     `json:"utilization"`
	NotEvaluated []string            `json:"not_evaluated,omitempty"`
	Note         string              `json:"note,omitempty"`
}

// AutopilotSection is the residency_autopilot.json document.
type AutopilotSection struct {
	AsOf             generic.Date     `json:"as_of"`
	Assumptions      Assumptions      `json:"assumptions"`
	Jurisdictions    []AutopilotEntry `json:"jurisdictions"`
	RecommendedMoves []string         `json:"recommended_moves"`
}

// Assumptions states what the simulations take for granted.
type Assumptions struct {
	StartDay    generic.Date `json:"start_day"`
	HorizonDays int          `json:"horizon_days"`
	CountMethod string       `json:"count_method,omitempty"`
	Note        string       `json:"note"`
}

// AutopilotEntry is the projection of one jurisdiction.
type AutopilotEntry struct {
	Country     generic.CountryCode       `json:"country"`
	Window      string                    `json:"window"`
	CurrentDays int                       `json:"current_days"`
	Buffer      presence.SimulationResult `json:"buffer"`
	Threshold   presence.SimulationResult `json:"threshold"`
}

const assumptionNote = "simulation assumes continuous daily presence in the target country from the start date."

// BuildReportFromStore snapshots the stays held by store and builds the
// report from that snapshot. Writes to the store after the snapshot do not
// affect the result.
func BuildReportFromStore(
	ctx context.Context,
	store generic.StayStore,
	jurisdictions []presence.Jurisdiction,
	asOf generic.Date,
	opts Options,
) (*Report, error) {
	stays, err := store.ListStays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stays: %w", err)
	}
	return BuildReport(ctx, stays, jurisdictions, asOf, opts)
}

// BuildReport evaluates every jurisdiction as of asOf and projects forward.
// stays is read-only.
func BuildReport(
	ctx context.Context,
	stays []generic.Stay,
	jurisdictions []presence.Jurisdiction,
	asOf generic.Date,
	opts Options,
) (*Report, error) {
	logger := opts.Logger
	horizon := opts.HorizonDays
	if horizon <= 0 {
		horizon = presence.DefaultHorizonDays
	}
	startDay := asOf.AddDays(opts.StartOffsetDays)

	report := &Report{
		AsOf:       asOf,
		KPI:        KPISection{AsOf: asOf, Jurisdictions: []KPIEntry{}},
		Thresholds: ThresholdSection{AsOf: asOf, Jurisdictions: []ThresholdEntry{}},
		Autopilot: AutopilotSection{
			AsOf: asOf,
			Assumptions: Assumptions{
				StartDay:    startDay,
				HorizonDays: horizon,
				CountMethod: opts.CountMethod,
				Note:        assumptionNote,
			},
			Jurisdictions:    []AutopilotEntry{},
			RecommendedMoves: []string{},
		},
	}

	// Step 1: Count and classify
	var (
		valid   []presence.Jurisdiction
		evals   []presence.Evaluation
		windows []generic.PeriodConfig
	)
	for _, j := range jurisdictions {
		count := presence.Count(stays, j, asOf)
		eval, err := presence.Evaluate(j, count)
		if err != nil {
			if !opts.SkipInvalid {
				return nil, err
			}
			logger.Warn().Err(err).Str("country", string(j.Country)).Msg("skipping invalid jurisdiction")
			report.Skipped = append(report.Skipped, SkippedCountry{Country: j.Country, Error: err.Error()})
			continue
		}

		valid = append(valid, j)
		evals = append(evals, eval)
		windows = append(windows, j.Window)

		report.KPI.Jurisdictions = append(report.KPI.Jurisdictions, kpiEntry(stays, j, count, asOf))
		report.Thresholds.Jurisdictions = append(report.Thresholds.Jurisdictions, ThresholdEntry{
			Country:      j.Country,
			Days:         eval.Count.Days,
			Threshold:    eval.Threshold,
			Buffer:       eval.Buffer,
			ThresholdMet: eval.ThresholdMet,
			Remaining:    eval.Remaining,
			Utilization:  eval.Utilization,
			NotEvaluated: j.ExtendedRules,
			Note:         j.Note,
		})
	}

	// Step 2: Advice
	report.Advisor = Advise(asOf, evals, windows)

	// Step 3: Forward simulations, two per jurisdiction
	entries := make([]AutopilotEntry, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range valid {
		j := j // per-iteration copy; go directive is 1.21 (pre-1.22 loop semantics)
		entries[i] = AutopilotEntry{
			Country:     j.Country,
			Window:      j.Window.String(),
			CurrentDays: evals[i].Count.Days,
		}
		entry := &entries[i]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry.Buffer = presence.SimulateReach(stays, j.Country, startDay, j.Buffer, j.Window, horizon)
			return nil
		})
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry.Threshold = presence.SimulateReach(stays, j.Country, startDay, j.Threshold, j.Window, horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation cancelled: %w", err)
	}

	report.Autopilot.Jurisdictions = entries
	for _, e := range entries {
		report.Autopilot.RecommendedMoves = append(report.Autopilot.RecommendedMoves, recommendedMoves(e)...)
	}

	logger.Debug().
		Str("as_of", asOf.String()).
		Int("jurisdictions", len(valid)).
		Int("skipped", len(report.Skipped)).
		Msg("report built")

	return report, nil
}

func kpiEntry(stays []generic.Stay, j presence.Jurisdiction, primary presence.DayCount, asOf generic.Date) KPIEntry {
	entry := KPIEntry{
		Country:      j.Country,
		Name:         j.Name,
		Primary:      WindowCount{Label: j.Window.String(), DayCount: primary},
		CalendarYear: presence.CountIn(stays, j.Country, generic.CalendarYearBounds(asOf), asOf),
	}
	for _, w := range j.ReportWindows {
		entry.Windows = append(entry.Windows, WindowCount{
			Label:    w.String(),
			DayCount: presence.CountIn(stays, j.Country, w.PeriodFor(asOf), asOf),
		})
	}
	return entry
}

func recommendedMoves(e AutopilotEntry) []string {
	var moves []string
	if e.Buffer.Reached {
		moves = append(moves, fmt.Sprintf(
			"%s early-warning line (%d) expected on %s: arrange a departure or third-country stay before then.",
			e.Country, e.Buffer.Target, *e.Buffer.TriggerDate))
	}
	if e.Threshold.Reached {
		moves = append(moves, fmt.Sprintf(
			"%s %d (%s) expected on %s: plan the stay structure before then.",
			e.Country, e.Threshold.Target, e.Window, *e.Threshold.TriggerDate))
	}
	return moves
}
