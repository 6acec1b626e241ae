/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the stay ledger, jurisdiction configurations and generated
  reports. The engine never reads from here directly: handlers load a
  snapshot of stays and pass it into the presence package by value.

INTERFACES IMPLEMENTED:
  generic.StayStore: Stay persistence

KEY TABLES:
  stays:          One row per presence interval (exit NULL = ongoing)
  jurisdictions:  Threshold configuration as JSON documents (factory format)
  reports:        Generated presence reports, newest first

INDEXES:
  - idx_stays_country_entry: Per-country stay lookups (hot path)
  - idx_reports_as_of: Latest report lookup

CONCURRENCY:
  Uses sync.RWMutex for thread-safety.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/presence.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  stays, err := store.ListStays(ctx)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/jurisdiction.go: Jurisdiction JSON format
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/residency-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stays (presence intervals)
	CREATE TABLE IF NOT EXISTS stays (
		id TEXT PRIMARY KEY,
		country TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		exit_date TEXT,
		note TEXT,
		created_at TEXT NOT NULL,
		CHECK (exit_date IS NULL OR exit_date >= entry_date)
	);

	CREATE INDEX IF NOT EXISTS idx_stays_country_entry
		ON stays(country, entry_date);

	-- Jurisdictions (threshold configuration)
	CREATE TABLE IF NOT EXISTS jurisdictions (
		country TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Reports (generated presence reports)
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		as_of TEXT NOT NULL,
		report_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_as_of
		ON reports(as_of DESC, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STAY STORE (generic.StayStore interface)
// =============================================================================

// AppendStay validates and inserts a stay. An empty ID is replaced by a UUID.
func (s *Store) AppendStay(ctx context.Context, stay generic.Stay) (generic.Stay, error) {
	if err := stay.Validate(); err != nil {
		return generic.Stay{}, err
	}
	if stay.ID == "" {
		stay.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO stays (id, country, entry_date, exit_date, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var exit sql.NullString
	if stay.Exit != nil {
		exit = sql.NullString{String: stay.Exit.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		stay.ID,
		string(stay.Country),
		stay.Entry.String(),
		exit,
		nullString(stay.Note),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Stay{}, fmt.Errorf("%w: %s", generic.ErrDuplicateStay, stay.ID)
		}
		return generic.Stay{}, fmt.Errorf("failed to append stay: %w", err)
	}
	return stay, nil
}

// ListStays returns all stays ordered by entry date.
func (s *Store) ListStays(ctx context.Context) ([]generic.Stay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, country, entry_date, exit_date, note
		FROM stays
		ORDER BY entry_date ASC, created_at ASC
	`
	return s.queryStays(ctx, query)
}

// StaysFor returns the stays of one country ordered by entry date.
func (s *Store) StaysFor(ctx context.Context, country generic.CountryCode) ([]generic.Stay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, country, entry_date, exit_date, note
		FROM stays
		WHERE country = ?
		ORDER BY entry_date ASC, created_at ASC
	`
	return s.queryStays(ctx, query, string(country))
}

// DeleteStay removes a stay by ID.
func (s *Store) DeleteStay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM stays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete stay: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrStayNotFound, id)
	}
	return nil
}

func (s *Store) queryStays(ctx context.Context, query string, args ...any) ([]generic.Stay, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stays: %w", err)
	}
	defer rows.Close()

	var stays []generic.Stay
	for rows.Next() {
		stay, err := scanStay(rows)
		if err != nil {
			return nil, err
		}
		stays = append(stays, stay)
	}
	return stays, rows.Err()
}

func scanStay(rows *sql.Rows) (generic.Stay, error) {
	var (
		stay    generic.Stay
		country string
		entry   string
		exit    sql.NullString
		note    sql.NullString
	)
	if err := rows.Scan(&stay.ID, &country, &entry, &exit, &note); err != nil {
		return generic.Stay{}, fmt.Errorf("failed to scan stay: %w", err)
	}

	stay.Country = generic.CountryCode(country)
	stay.Note = note.String

	var err error
	if stay.Entry, err = generic.ParseDate(entry); err != nil {
		return generic.Stay{}, parseErrorAt(err, stay.ID, "entry")
	}
	if exit.Valid {
		d, err := generic.ParseDate(exit.String)
		if err != nil {
			return generic.Stay{}, parseErrorAt(err, stay.ID, "exit")
		}
		stay.Exit = &d
	}
	return stay, nil
}

func parseErrorAt(err error, id, field string) error {
	var pe *generic.ParseError
	if errors.As(err, &pe) {
		return pe.WithRecord("stays/"+id, field)
	}
	return err
}

// =============================================================================
// JURISDICTION STORE
// =============================================================================

// JurisdictionRecord is a stored jurisdiction with its JSON config.
type JurisdictionRecord struct {
	Country    string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveJurisdiction inserts or replaces a jurisdiction, bumping its version.
func (s *Store) SaveJurisdiction(ctx context.Context, j JurisdictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jurisdictions (country, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(country) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = jurisdictions.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, j.Country, j.Name, j.ConfigJSON, now, now)
	return err
}

// GetJurisdiction retrieves a jurisdiction by country code.
func (s *Store) GetJurisdiction(ctx context.Context, country string) (*JurisdictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var j JurisdictionRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT country, name, config_json, version, created_at, updated_at FROM jurisdictions WHERE country = ?",
		country,
	).Scan(&j.Country, &j.Name, &j.ConfigJSON, &j.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", generic.ErrJurisdictionNotFound, country)
	}
	if err != nil {
		return nil, err
	}

	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

// ListJurisdictions returns all jurisdictions ordered by country.
func (s *Store) ListJurisdictions(ctx context.Context) ([]JurisdictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT country, name, config_json, version, created_at, updated_at FROM jurisdictions ORDER BY country",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JurisdictionRecord
	for rows.Next() {
		var j JurisdictionRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&j.Country, &j.Name, &j.ConfigJSON, &j.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, j)
	}
	return out, rows.Err()
}

// =============================================================================
// REPORT STORE
// =============================================================================

// ReportRecord is a persisted report document.
type ReportRecord struct {
	ID         string
	AsOf       generic.Date
	ReportJSON string
	CreatedAt  time.Time
}

// SaveReport stores a report. An empty ID is replaced by a UUID.
func (s *Store) SaveReport(ctx context.Context, r ReportRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reports (id, as_of, report_json, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.AsOf.String(), r.ReportJSON, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return r.ID, nil
}

// LatestReport returns the most recent report, or nil if none exist.
func (s *Store) LatestReport(ctx context.Context) (*ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r ReportRecord
	var asOf, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, as_of, report_json, created_at FROM reports ORDER BY as_of DESC, created_at DESC LIMIT 1",
	).Scan(&r.ID, &asOf, &r.ReportJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.AsOf, err = generic.ParseDate(asOf); err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"stays", "jurisdictions", "reports"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// Compile-time check
var _ generic.StayStore = (*Store)(nil)
