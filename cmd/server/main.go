/*
main.go - Server entry point

PURPOSE:
  Starts the residency HTTP API: stays, jurisdictions, day counts,
  simulations, reports and the daily report snapshot.

STARTUP SEQUENCE:
  1. Parse command-line flags, overlay the TOML config
  2. Initialize SQLite store
  3. Create API handler with metrics and report options
  4. Start the report scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config file (default: presence.toml, optional)
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: presence.db)
           Use ":memory:" for in-memory database
  -debug   Debug logging

  A flag given on the command line wins over the config file.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the report scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/presence.db"
  ./server -db=":memory:" -port=3000
  ./server -config=/etc/presence.toml

SEE ALSO:
  - config/config.go: Config file
  - api/server.go: Router configuration
  - api/scheduler.go: Daily report snapshot
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/residency-engine/api"
	"github.com/warp/residency-engine/config"
	"github.com/warp/residency-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", config.DefaultPath(), "TOML config file")
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "presence.db", "SQLite database path")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "presence").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load config")
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "db":
			cfg.Server.DB = *dbPath
		}
	})

	interval, err := reportInterval(cfg.Server.ReportInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid report interval")
	}

	// Initialize store
	store, err := sqlite.New(cfg.Server.DB)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.Server.DB).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Logger = log
	handler.Metrics = api.NewMetrics()
	handler.ReportOptions.HorizonDays = cfg.Report.HorizonDays
	handler.ReportOptions.StartOffsetDays = cfg.Report.StartOffsetDays
	handler.ReportOptions.SkipInvalid = true
	handler.ReportOptions.Logger = log

	scheduler := api.NewReportScheduler(handler)
	scheduler.CheckInterval = interval
	scheduler.Enabled = interval > 0
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("db", cfg.Server.DB).
			Msgf("server starting on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// reportInterval parses the scheduler interval. Empty or zero disables it.
func reportInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}
	return d, nil
}
