package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warp/residency-engine/advisor"
	"github.com/warp/residency-engine/api"
	"github.com/warp/residency-engine/factory"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/generic/store"
	"github.com/warp/residency-engine/presence"
	"github.com/warp/residency-engine/store/sqlite"
)

// Report file names, one per report section.
const (
	FileKPI        = "kpi_presence.json"
	FileThresholds = "kpi_thresholds.json"
	FileAdvisor    = "dual_advisor.json"
	FileAutopilot  = "residency_autopilot.json"
)

// =============================================================================
// REPORT
// =============================================================================

func newReportCmd(a *app) *cobra.Command {
	var (
		ledgerPath  string
		asOfFlag    string
		outDir      string
		horizon     int
		startOffset int
		skipInvalid bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the KPI, threshold, advisor and autopilot documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyStringConfig(cmd, "out", &outDir, a.cfg.Report.OutDir)
			applyIntConfig(cmd, "horizon", &horizon, a.cfg.Report.HorizonDays)
			applyIntConfig(cmd, "start-offset", &startOffset, a.cfg.Report.StartOffsetDays)

			asOf, err := dateFlag("as-of", asOfFlag, generic.Today())
			if err != nil {
				return err
			}
			ledger, err := a.loadLedger(cmd, ledgerPath)
			if err != nil {
				return err
			}

			opts := advisor.DefaultOptions()
			opts.HorizonDays = horizon
			opts.StartOffsetDays = startOffset
			opts.SkipInvalid = skipInvalid
			opts.Logger = a.log
			if ledger.Meta.CountMethod != "" {
				opts.CountMethod = ledger.Meta.CountMethod
			}

			stays, err := memoryStore(cmd, ledger.Stays)
			if err != nil {
				return err
			}
			report, err := advisor.BuildReportFromStore(cmd.Context(), stays, ledger.Jurisdictions, asOf, opts)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			sections := []struct {
				name string
				doc  any
			}{
				{FileKPI, report.KPI},
				{FileThresholds, report.Thresholds},
				{FileAdvisor, report.Advisor},
				{FileAutopilot, report.Autopilot},
			}
			for _, s := range sections {
				path := filepath.Join(outDir, s.name)
				if err := writeFile(path, s.doc); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Wrote:", path)
			}
			for _, sk := range report.Skipped {
				a.log.Warn().Str("country", string(sk.Country)).Msg(sk.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger file (.yaml or .json)")
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "report date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&outDir, "out", "out", "output directory")
	cmd.Flags().IntVar(&horizon, "horizon", presence.DefaultHorizonDays, "simulation horizon in days")
	cmd.Flags().IntVar(&startOffset, "start-offset", 1, "days after as-of the simulations start")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "report invalid jurisdictions instead of failing")
	return cmd
}

// memoryStore loads ledger stays into an in-memory store, rejecting
// duplicate stay ids.
func memoryStore(cmd *cobra.Command, stays []generic.Stay) (*store.Memory, error) {
	mem := store.NewMemory()
	for i, s := range stays {
		if _, err := mem.AppendStay(cmd.Context(), s); err != nil {
			return nil, fmt.Errorf("stays[%d]: %w", i, err)
		}
	}
	return mem, nil
}

func writeFile(path string, doc any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeJSON(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// =============================================================================
// COUNT
// =============================================================================

// countOutput is printed by `presence count`.
type countOutput struct {
	presence.DayCount
	Evaluation *presence.Evaluation `json:"evaluation,omitempty"`
}

func newCountCmd(a *app) *cobra.Command {
	var ledgerPath, country, from, to, asOfFlag string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count presence days for a country",
		Long: "Without --from the jurisdiction's window as of --as-of is counted and classified.\n" +
			"With --from the explicit range [from, to] is counted (to defaults to --as-of).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := dateFlag("as-of", asOfFlag, generic.Today())
			if err != nil {
				return err
			}
			ledger, err := a.loadLedger(cmd, ledgerPath)
			if err != nil {
				return err
			}
			code := generic.NormalizeCountry(country)

			if from != "" {
				start, err := dateFlag("from", from, asOf)
				if err != nil {
					return err
				}
				end, err := dateFlag("to", to, asOf)
				if err != nil {
					return err
				}
				window := generic.Period{Start: start, End: end}
				if err := window.Validate(); err != nil {
					return err
				}
				out := countOutput{DayCount: presence.DayCount{
					Country: code,
					Days:    presence.DaysPresent(ledger.Stays, code, start, end),
					Period:  window,
					Window:  window,
				}}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			j, err := ledger.Jurisdiction(code)
			if err != nil {
				return err
			}
			count := presence.Count(ledger.Stays, j, asOf)
			eval, err := presence.Evaluate(j, count)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), countOutput{DayCount: count, Evaluation: &eval})
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger file (.yaml or .json)")
	cmd.Flags().StringVar(&country, "country", "", "country code, e.g. GB")
	cmd.Flags().StringVar(&from, "from", "", "range start YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "range end YYYY-MM-DD (default: --as-of)")
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "count date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}

// =============================================================================
// SIMULATE
// =============================================================================

func newSimulateCmd(a *app) *cobra.Command {
	var (
		ledgerPath, country, from, asOfFlag string
		target, horizon                     int
		useBuffer                           bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Find the first day a target count is reached under continuous presence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyIntConfig(cmd, "horizon", &horizon, a.cfg.Report.HorizonDays)

			asOf, err := dateFlag("as-of", asOfFlag, generic.Today())
			if err != nil {
				return err
			}
			start, err := dateFlag("from", from, asOf.AddDays(a.cfg.Report.StartOffsetDays))
			if err != nil {
				return err
			}
			ledger, err := a.loadLedger(cmd, ledgerPath)
			if err != nil {
				return err
			}
			j, err := ledger.Jurisdiction(generic.NormalizeCountry(country))
			if err != nil {
				return err
			}
			if err := j.Validate(); err != nil {
				return err
			}

			if target == 0 {
				target = j.Threshold
				if useBuffer {
					target = j.Buffer
				}
			}
			if target < 0 {
				return fmt.Errorf("--target must be positive, got %d", target)
			}

			result := presence.SimulateReach(ledger.Stays, j.Country, start, target, j.Window, horizon)
			a.log.Debug().
				Str("country", string(j.Country)).
				Int("target", target).
				Bool("reached", result.Reached).
				Msg("simulation done")
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger file (.yaml or .json)")
	cmd.Flags().StringVar(&country, "country", "", "country code, e.g. GB")
	cmd.Flags().IntVar(&target, "target", 0, "target day count (default: the jurisdiction threshold)")
	cmd.Flags().BoolVar(&useBuffer, "buffer", false, "use the jurisdiction buffer as target")
	cmd.Flags().StringVar(&from, "from", "", "first simulated day YYYY-MM-DD (default: as-of + start offset)")
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "reference date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&horizon, "horizon", presence.DefaultHorizonDays, "last day offset tried")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}

// =============================================================================
// IMPORT
// =============================================================================

func newImportCmd(a *app) *cobra.Command {
	var (
		ledgerPath, dbPath string
		reset              bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a ledger into the SQLite database used by the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyStringConfig(cmd, "db", &dbPath, a.cfg.Server.DB)

			ledger, err := a.loadLedger(cmd, ledgerPath)
			if err != nil {
				return err
			}

			db, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := api.ImportLedger(cmd.Context(), db, factory.NewJurisdictionFactory(), ledger, reset); err != nil {
				return err
			}

			a.log.Info().
				Str("db", dbPath).
				Int("stays", len(ledger.Stays)).
				Int("jurisdictions", len(ledger.Jurisdictions)).
				Msg("ledger imported")
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d stays, %d jurisdictions into %s\n",
				len(ledger.Stays), len(ledger.Jurisdictions), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger file (.yaml or .json)")
	cmd.Flags().StringVar(&dbPath, "db", "presence.db", "SQLite database path")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the database first")
	return cmd
}
