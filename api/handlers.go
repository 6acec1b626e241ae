/*
handlers.go - HTTP API handlers for the presence engine

PURPOSE:
  Exposes stay bookkeeping, day counts, reports and forward simulations
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the presence and advisor packages.

ENDPOINTS:
  Stays:
    GET    /api/stays                   List stays (?country=GB)
    POST   /api/stays                   Record a stay
    DELETE /api/stays/{id}              Remove a stay

  Jurisdictions:
    GET    /api/jurisdictions           Built-in presets merged with stored ones
    POST   /api/jurisdictions           Create or replace from JSON
    GET    /api/jurisdictions/{country} Single jurisdiction

  Presence:
    GET    /api/presence/{country}      Count (?as_of=, ?from=&to=)
    POST   /api/simulate                First day a target is reached

  Reports:
    GET    /api/report                  Build and persist a report (?as_of=)
    GET    /api/reports/latest          Most recent persisted report

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - JurisdictionFactory: JSON to Jurisdiction conversion
  - Metrics: Prometheus collectors (optional)
  - Today: Clock, replaceable in tests

  The engine never touches the store. Each request loads a snapshot of
  stays and passes it to the pure presence functions.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed dates, invalid configuration, exit before entry
  - 404: Unknown stay or jurisdiction
  - 409: Duplicate stay ID
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo ledgers
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/residency-engine/advisor"
	"github.com/warp/residency-engine/factory"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
	"github.com/warp/residency-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store               *sqlite.Store
	JurisdictionFactory *factory.JurisdictionFactory
	Metrics             *Metrics
	Logger              zerolog.Logger

	// ReportOptions are used for every report and as simulation defaults.
	ReportOptions advisor.Options

	// Today returns the as-of date used when a request doesn't name one.
	Today func() generic.Date

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:               store,
		JurisdictionFactory: factory.NewJurisdictionFactory(),
		Logger:              zerolog.Nop(),
		ReportOptions:       advisor.DefaultOptions(),
		Today:               generic.Today,
	}
}

// jurisdictions returns the built-in presets with stored jurisdictions
// replacing or extending them by country.
func (h *Handler) jurisdictions(ctx context.Context) ([]presence.Jurisdiction, error) {
	records, err := h.Store.ListJurisdictions(ctx)
	if err != nil {
		return nil, err
	}

	out := presence.Defaults()
	for _, r := range records {
		j, err := h.JurisdictionFactory.ParseJurisdiction(r.ConfigJSON)
		if err != nil {
			return nil, fmt.Errorf("stored jurisdiction %s: %w", r.Country, err)
		}
		replaced := false
		for i := range out {
			if out[i].Country == j.Country {
				out[i] = j
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, j)
		}
	}
	return out, nil
}

func (h *Handler) jurisdiction(ctx context.Context, country generic.CountryCode) (presence.Jurisdiction, error) {
	all, err := h.jurisdictions(ctx)
	if err != nil {
		return presence.Jurisdiction{}, err
	}
	for _, j := range all {
		if j.Country == country {
			return j, nil
		}
	}
	return presence.Jurisdiction{}, fmt.Errorf("%w: %s", generic.ErrJurisdictionNotFound, country)
}

// =============================================================================
// STAY HANDLERS
// =============================================================================

// ListStays returns all stays, optionally filtered by country.
// GET /api/stays
func (h *Handler) ListStays(w http.ResponseWriter, r *http.Request) {
	var (
		stays []generic.Stay
		err   error
	)
	if c := r.URL.Query().Get("country"); c != "" {
		stays, err = h.Store.StaysFor(r.Context(), generic.NormalizeCountry(c))
	} else {
		stays, err = h.Store.ListStays(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stays", err)
		return
	}

	dtos := make([]StayDTO, len(stays))
	for i, s := range stays {
		dtos[i] = toStayDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStay records a stay.
// POST /api/stays
func (h *Handler) CreateStay(w http.ResponseWriter, r *http.Request) {
	var req CreateStayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	stay, err := factory.ParseStay(req)
	if err != nil {
		writeDomainError(w, "Invalid stay", err)
		return
	}

	stay, err = h.Store.AppendStay(r.Context(), stay)
	if err != nil {
		writeDomainError(w, "Failed to save stay", err)
		return
	}
	h.Metrics.ObserveStayWrite("create")
	h.Logger.Info().Str("id", stay.ID).Stringer("stay", stay).Msg("stay recorded")

	writeJSON(w, http.StatusCreated, toStayDTO(stay))
}

// DeleteStay removes a stay.
// DELETE /api/stays/{id}
func (h *Handler) DeleteStay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteStay(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete stay", err)
		return
	}
	h.Metrics.ObserveStayWrite("delete")

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// JURISDICTION HANDLERS
// =============================================================================

// ListJurisdictions returns built-in and stored jurisdictions.
// GET /api/jurisdictions
func (h *Handler) ListJurisdictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.jurisdictions(ctx)
	if err != nil {
		writeDomainError(w, "Failed to load jurisdictions", err)
		return
	}
	records, err := h.Store.ListJurisdictions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jurisdictions", err)
		return
	}
	versions := make(map[string]int, len(records))
	for _, rec := range records {
		versions[rec.Country] = rec.Version
	}

	dtos := make([]JurisdictionDTO, len(all))
	for i, j := range all {
		v, stored := versions[string(j.Country)]
		dtos[i] = JurisdictionDTO{
			JurisdictionJSON: h.JurisdictionFactory.ToJSON(j),
			Version:          v,
			BuiltIn:          !stored,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJurisdiction returns one jurisdiction.
// GET /api/jurisdictions/{country}
func (h *Handler) GetJurisdiction(w http.ResponseWriter, r *http.Request) {
	country := generic.NormalizeCountry(chi.URLParam(r, "country"))

	j, err := h.jurisdiction(r.Context(), country)
	if err != nil {
		writeDomainError(w, "Failed to get jurisdiction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.JurisdictionFactory.ToJSON(j))
}

// CreateJurisdiction creates or replaces a jurisdiction from its JSON document.
// POST /api/jurisdictions
func (h *Handler) CreateJurisdiction(w http.ResponseWriter, r *http.Request) {
	var req factory.JurisdictionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	j, err := h.JurisdictionFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid jurisdiction", err)
		return
	}

	configJSON, err := h.JurisdictionFactory.MarshalJurisdiction(j)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode jurisdiction", err)
		return
	}

	record := sqlite.JurisdictionRecord{
		Country:    string(j.Country),
		Name:       j.Name,
		ConfigJSON: configJSON,
	}
	if err := h.Store.SaveJurisdiction(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save jurisdiction", err)
		return
	}
	h.Logger.Info().Str("country", string(j.Country)).Msg("jurisdiction saved")

	writeJSON(w, http.StatusCreated, h.JurisdictionFactory.ToJSON(j))
}

// =============================================================================
// PRESENCE HANDLERS
// =============================================================================

// GetPresence counts presence days for a country.
// GET /api/presence/{country}?as_of=YYYY-MM-DD
// GET /api/presence/{country}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := generic.NormalizeCountry(chi.URLParam(r, "country"))
	q := r.URL.Query()

	asOf, err := dateParam(q.Get("as_of"), "as_of", h.Today())
	if err != nil {
		writeDomainError(w, "Invalid as_of", err)
		return
	}

	stays, err := h.Store.StaysFor(ctx, country)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stays", err)
		return
	}

	// Explicit range
	if q.Get("from") != "" || q.Get("to") != "" {
		if q.Get("from") == "" {
			writeError(w, http.StatusBadRequest, "from is required with to", nil)
			return
		}
		from, err := dateParam(q.Get("from"), "from", asOf)
		if err != nil {
			writeDomainError(w, "Invalid from", err)
			return
		}
		to, err := dateParam(q.Get("to"), "to", asOf)
		if err != nil {
			writeDomainError(w, "Invalid to", err)
			return
		}
		window := generic.Period{Start: from, End: to}
		if err := window.Validate(); err != nil {
			writeDomainError(w, "Invalid range", err)
			return
		}

		dates := presence.PresenceDays(stays, country, from, to)
		writeJSON(w, http.StatusOK, PresenceDTO{
			Country: string(country),
			AsOf:    asOf,
			Days:    len(dates),
			Window:  window,
			Dates:   dates,
		})
		return
	}

	// Jurisdiction window
	j, err := h.jurisdiction(ctx, country)
	if err != nil {
		writeDomainError(w, "Unknown jurisdiction", err)
		return
	}
	count := presence.Count(stays, j, asOf)
	eval, err := presence.Evaluate(j, count)
	if err != nil {
		writeDomainError(w, "Failed to evaluate", err)
		return
	}

	writeJSON(w, http.StatusOK, PresenceDTO{
		Country:    string(country),
		AsOf:       asOf,
		Days:       count.Days,
		Window:     count.Window,
		Period:     &count.Period,
		Evaluation: &eval,
	})
}

// Simulate finds the first day a target is reached under continuous presence.
// POST /api/simulate
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	country := generic.NormalizeCountry(req.Country)
	if country == "" {
		writeError(w, http.StatusBadRequest, "country is required", nil)
		return
	}

	j, err := h.jurisdiction(ctx, country)
	if err != nil && (req.Window == nil || req.Target <= 0) {
		writeDomainError(w, "Unknown jurisdiction", err)
		return
	}

	window, target := j.Window, j.Threshold
	if req.Window != nil {
		if window, err = h.JurisdictionFactory.ParseWindow(*req.Window); err != nil {
			writeDomainError(w, "Invalid window", err)
			return
		}
	}
	if req.Target != 0 {
		target = req.Target
	}
	if target <= 0 {
		writeError(w, http.StatusBadRequest, "target must be positive", nil)
		return
	}

	startDay, err := dateParam(req.StartDay, "start_day", h.Today().AddDays(h.ReportOptions.StartOffsetDays))
	if err != nil {
		writeDomainError(w, "Invalid start_day", err)
		return
	}

	horizon := h.ReportOptions.HorizonDays
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
	}

	stays, err := h.Store.StaysFor(ctx, country)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stays", err)
		return
	}

	result := presence.SimulateReach(stays, country, startDay, target, window, horizon)
	h.Metrics.ObserveSimulation(result)

	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetReport builds a report, persists it and returns it.
// GET /api/report?as_of=YYYY-MM-DD
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r.URL.Query().Get("as_of"), "as_of", h.Today())
	if err != nil {
		writeDomainError(w, "Invalid as_of", err)
		return
	}

	report, err := h.buildAndSaveReport(r.Context(), asOf, "api")
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetLatestReport returns the most recently persisted report verbatim.
// GET /api/reports/latest
func (h *Handler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.LatestReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load report", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No report yet", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rec.ReportJSON))
}

// buildAndSaveReport is shared by the report endpoint and the scheduler.
func (h *Handler) buildAndSaveReport(ctx context.Context, asOf generic.Date, source string) (*advisor.Report, error) {
	started := time.Now()

	jurisdictions, err := h.jurisdictions(ctx)
	if err != nil {
		return nil, err
	}

	opts := h.ReportOptions
	opts.Logger = h.Logger
	report, err := advisor.BuildReportFromStore(ctx, h.Store, jurisdictions, asOf, opts)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	id, err := h.Store.SaveReport(ctx, sqlite.ReportRecord{AsOf: asOf, ReportJSON: string(data)})
	if err != nil {
		return nil, err
	}

	h.Metrics.ObserveReport(source, started)
	for _, e := range report.Autopilot.Jurisdictions {
		h.Metrics.ObserveSimulation(e.Buffer)
		h.Metrics.ObserveSimulation(e.Threshold)
	}
	h.Logger.Info().Str("id", id).Str("as_of", asOf.String()).Str("source", source).Msg("report saved")

	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam parses an optional YYYY-MM-DD value, returning def when empty.
func dateParam(value, field string, def generic.Date) (generic.Date, error) {
	if value == "" {
		return def, nil
	}
	d, err := generic.ParseDate(value)
	if err != nil {
		var pe *generic.ParseError
		if errors.As(err, &pe) {
			return generic.Date{}, pe.WithRecord("", field)
		}
		return generic.Date{}, err
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case generic.IsClientError(err):
		status = http.StatusBadRequest
	case generic.IsNotFound(err):
		status = http.StatusNotFound
	case generic.IsConflict(err):
		status = http.StatusConflict
	}
	writeError(w, status, message, err)
}
