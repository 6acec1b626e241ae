/*
scenarios.go - Demo ledgers for testing and demonstrations

PURPOSE:
	Provides pre-built ledgers that populate the database with realistic
	travel histories. Each scenario is a YAML ledger document parsed by the
	factory, exactly like a file passed to the CLI.

AVAILABLE SCENARIOS:

	uk-approaching:      181 UK days in H1 2025, China untouched
	dual-presence:       Alternating UK / China stays, UK stay ongoing
	china-calendar-year: Long China presence across a year boundary
	custom-jurisdiction: A Germany jurisdiction defined in the ledger

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse the scenario ledger via factory.ParseLedgerYAML
 3. Store its jurisdictions as JSON documents
 4. Append its stays

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "dual-presence"}

	then GET /api/report?as_of=<scenario as_of>

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report and presence endpoints
  - factory/ledger.go: Ledger document format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/residency-engine/factory"
	"github.com/warp/residency-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "uk-approaching",
		Name:        "UK Approaching",
		Description: "181 UK days in the first half of 2025, no China days",
		AsOf:        "2025-06-30",
	},
	{
		ID:          "dual-presence",
		Name:        "Dual Presence",
		Description: "UK and China stays alternating, current UK stay still open",
		AsOf:        "2025-09-30",
	},
	{
		ID:          "china-calendar-year",
		Name:        "China Calendar Year",
		Description: "China presence spanning New Year; the calendar-year count resets",
		AsOf:        "2025-06-30",
	},
	{
		ID:          "custom-jurisdiction",
		Name:        "Custom Jurisdiction",
		Description: "Germany added through the ledger's jurisdictions list",
		AsOf:        "2025-08-31",
	},
}

var scenarioLedgers = map[string]string{
	"uk-approaching": `
meta: {owner: demo, count_method: inclusive}
stays:
  - {country: GB, entry: 2025-01-01, exit: 2025-06-30}
thresholds:
  uk:
    rolling_days_window: 365
    rolling_day_threshold: 183
    tax_year: {starts_month: 4, starts_day: 6}
  cn:
    calendar_year_day_threshold: 183
    six_year_rule: {enabled: true}
`,
	"dual-presence": `
meta: {owner: demo, count_method: inclusive}
stays:
  - {country: GB, entry: 2025-01-03, exit: 2025-03-01}
  - {country: CN, entry: 2025-03-02, exit: 2025-05-20}
  - {country: GB, entry: 2025-05-21}
thresholds:
  uk:
    rolling_days_window: 365
    rolling_day_threshold: 183
    tax_year: {starts_month: 4, starts_day: 6}
  cn:
    calendar_year_day_threshold: 183
    six_year_rule: {enabled: true}
`,
	"china-calendar-year": `
meta: {owner: demo, count_method: inclusive}
stays:
  - {country: CN, entry: 2024-07-01, exit: 2024-12-31}
  - {country: CN, entry: 2025-01-10, exit: 2025-06-30, note: Shanghai}
thresholds:
  cn:
    calendar_year_day_threshold: 183
    six_year_rule: {enabled: true}
`,
	"custom-jurisdiction": `
meta: {owner: demo, count_method: inclusive}
stays:
  - {country: DE, entry: 2025-02-01, exit: 2025-07-31}
  - {country: GB, entry: 2025-08-01}
jurisdictions:
  - country: DE
    name: Germany
    window: {type: calendar_year}
    threshold: 183
    buffer: 160
    note: Habitual abode test; six months is the trigger.
`,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioLedgers[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all stays, jurisdictions and reports.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	ledger, err := factory.ParseLedgerYAML([]byte(scenarioLedgers[id]))
	if err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	if err := ImportLedger(ctx, h.Store, h.JurisdictionFactory, ledger, true); err != nil {
		return err
	}
	h.currentScenario = id
	h.Logger.Info().Str("scenario", id).Int("stays", len(ledger.Stays)).Msg("scenario loaded")
	return nil
}

// ImportLedger writes a parsed ledger into the store. With reset the store
// is cleared first. Also used by `presence import`.
func ImportLedger(ctx context.Context, store *sqlite.Store, f *factory.JurisdictionFactory, ledger *factory.Ledger, reset bool) error {
	if reset {
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	for _, j := range ledger.Jurisdictions {
		configJSON, err := f.MarshalJurisdiction(j)
		if err != nil {
			return err
		}
		record := sqlite.JurisdictionRecord{Country: string(j.Country), Name: j.Name, ConfigJSON: configJSON}
		if err := store.SaveJurisdiction(ctx, record); err != nil {
			return fmt.Errorf("failed to save jurisdiction %s: %w", j.Country, err)
		}
	}

	for i, s := range ledger.Stays {
		if _, err := store.AppendStay(ctx, s); err != nil {
			return fmt.Errorf("stays[%d]: %w", i, err)
		}
	}
	return nil
}
