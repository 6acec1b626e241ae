// Package main provides the presence CLI: day counts, forward simulations
// and report files from a ledger document.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/residency-engine/config"
	"github.com/warp/residency-engine/factory"
	"github.com/warp/residency-engine/generic"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg config.FileConfig
	log zerolog.Logger
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:           "presence",
		Short:         "Residency day counting and threshold projections",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newReportCmd(a))
	rootCmd.AddCommand(newCountCmd(a))
	rootCmd.AddCommand(newSimulateCmd(a))
	rootCmd.AddCommand(newImportCmd(a))

	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	level := zerolog.InfoLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	return nil
}

// loadLedger reads the ledger named by --ledger, falling back to the config.
func (a *app) loadLedger(cmd *cobra.Command, path string) (*factory.Ledger, error) {
	applyStringConfig(cmd, "ledger", &path, a.cfg.Report.Ledger)
	if path == "" {
		return nil, fmt.Errorf("no ledger given (use --ledger or [report] ledger)")
	}
	ledger, err := factory.LoadLedger(path)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("ledger", path).Int("stays", len(ledger.Stays)).Msg("ledger loaded")
	return ledger, nil
}

// =============================================================================
// FLAG HELPERS
// =============================================================================

func applyStringConfig(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) || value == "" {
		return
	}
	*target = value
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

// dateFlag parses a YYYY-MM-DD flag, returning def when the flag is empty.
func dateFlag(name, value string, def generic.Date) (generic.Date, error) {
	if value == "" {
		return def, nil
	}
	d, err := generic.ParseDate(value)
	if err != nil {
		if pe, ok := err.(*generic.ParseError); ok {
			return generic.Date{}, pe.WithRecord("", "--"+name)
		}
		return generic.Date{}, err
	}
	return d, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
