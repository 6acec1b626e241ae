// Package config provides the TOML configuration file shared by the server
// and the presence CLI. Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "presence.toml"

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server ServerConfig `toml:"server"`
	Report ReportConfig `toml:"report"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	DB   string `toml:"db"`

	// ReportInterval is how often the server snapshots a report
	// (Go duration string, "" or "0" disables).
	ReportInterval string `toml:"report-interval"`
}

// ReportConfig maps report generation settings.
type ReportConfig struct {
	Ledger string `toml:"ledger"`
	OutDir string `toml:"out-dir"`

	// HorizonDays bounds forward simulations.
	HorizonDays int `toml:"horizon-days"`

	// StartOffsetDays is added to the as-of date to get the simulation
	// start. 1 means "from tomorrow", since today is already counted.
	StartOffsetDays int `toml:"start-offset-days"`
}

// Default returns the built-in configuration.
func Default() FileConfig {
	return FileConfig{
		Server: ServerConfig{
			Port:           8080,
			DB:             "presence.db",
			ReportInterval: "24h",
		},
		Report: ReportConfig{
			Ledger:          "presence_ledger.v3.yaml",
			OutDir:          "out",
			HorizonDays:     800,
			StartOffsetDays: 1,
		},
	}
}

// DefaultPath returns presence.toml in the working directory.
func DefaultPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(wd, DefaultFileName)
}

// Load reads a TOML config from path over the defaults. A missing file is
// not an error and yields Default().
func Load(path string) (FileConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate rejects values no command can run with.
func (c FileConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Report.HorizonDays < 0 {
		return fmt.Errorf("invalid horizon-days %d", c.Report.HorizonDays)
	}
	if c.Report.StartOffsetDays < 0 {
		return fmt.Errorf("invalid start-offset-days %d", c.Report.StartOffsetDays)
	}
	return nil
}
