/*
scheduler.go - Automated daily report snapshots

PURPOSE:
  Periodically builds a report as of today and persists it, so
  /api/reports/latest always has a current snapshot and the reports
  table keeps a day-by-day history of counts and projections.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips the run when a report for today already exists
  - Uses the same build path as GET /api/report

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReportScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: buildAndSaveReport
*/
package api

import (
	"context"
	"sync"
	"time"
)

// ReportScheduler snapshots a report once per day.
type ReportScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReportScheduler creates a new scheduler.
func NewReportScheduler(handler *Handler) *ReportScheduler {
	return &ReportScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *ReportScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	log := rs.Handler.Logger
	if !rs.Enabled || rs.CheckInterval <= 0 {
		log.Info().Msg("report scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	log.Info().Dur("interval", rs.CheckInterval).Msg("report scheduler started")
}

// Stop stops the scheduler and waits for a running snapshot to finish.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Handler.Logger.Info().Msg("report scheduler stopped")
	}
}

func (rs *ReportScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow builds today's report unless one already exists. It reports
// whether a new report was saved.
func (rs *ReportScheduler) RunNow(ctx context.Context) bool {
	h := rs.Handler
	log := h.Logger
	today := h.Today()

	latest, err := h.Store.LatestReport(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to load latest report")
		return false
	}
	if latest != nil && !latest.AsOf.Before(today) {
		log.Debug().Str("as_of", today.String()).Msg("scheduler: report already current")
		return false
	}

	if _, err := h.buildAndSaveReport(ctx, today, "scheduler"); err != nil {
		log.Error().Err(err).Str("as_of", today.String()).Msg("scheduler: report failed")
		return false
	}
	return true
}
