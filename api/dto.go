/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types
  (presence.Evaluation, presence.SimulationResult, advisor.Report) are
  returned as-is; the types here cover request bodies and the few
  responses that combine several engine values.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers through the factory and generic
  validators, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/ledger.go: StayJSON, the stay document form
*/
package api

import (
	"github.com/warp/residency-engine/factory"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// STAYS
// =============================================================================

// CreateStayRequest is the body of POST /api/stays. Dates are YYYY-MM-DD;
// an empty exit means the stay is ongoing.
type CreateStayRequest = factory.StayJSON

// StayDTO represents a stay in API responses.
type StayDTO struct {
	ID      string        `json:"id"`
	Country string        `json:"country"`
	Entry   generic.Date  `json:"entry"`
	Exit    *generic.Date `json:"exit"`
	Ongoing bool          `json:"ongoing"`
	Note    string        `json:"note,omitempty"`
}

func toStayDTO(s generic.Stay) StayDTO {
	return StayDTO{
		ID:      s.ID,
		Country: string(s.Country),
		Entry:   s.Entry,
		Exit:    s.Exit,
		Ongoing: s.IsOngoing(),
		Note:    s.Note,
	}
}

// =============================================================================
// JURISDICTIONS
// =============================================================================

// JurisdictionDTO wraps the jurisdiction document with storage metadata.
type JurisdictionDTO struct {
	factory.JurisdictionJSON
	Version int  `json:"version"`
	BuiltIn bool `json:"built_in"`
}

// =============================================================================
// PRESENCE
// =============================================================================

// PresenceDTO is the response of GET /api/presence/{country}.
//
// With from/to the count is over that explicit range and Dates lists the
// days. Without them the jurisdiction's window is used and Evaluation is set.
type PresenceDTO struct {
	Country    string               `json:"country"`
	AsOf       generic.Date         `json:"as_of"`
	Days       int                  `json:"days"`
	Window     generic.Period       `json:"window"`
	Period     *generic.Period      `json:"period,omitempty"`
	Dates      []generic.Date       `json:"dates,omitempty"`
	Evaluation *presence.Evaluation `json:"evaluation,omitempty"`
}

// =============================================================================
// SIMULATION
// =============================================================================

// SimulateRequest is the body of POST /api/simulate.
//
// Target defaults to the jurisdiction threshold, Window to the jurisdiction
// window, StartDay to tomorrow and HorizonDays to the default horizon.
type SimulateRequest struct {
	Country     string              `json:"country"`
	StartDay    string              `json:"start_day,omitempty"`
	Target      int                 `json:"target,omitempty"`
	HorizonDays *int                `json:"horizon_days,omitempty"`
	Window      *factory.WindowJSON `json:"window,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AsOf        string `json:"as_of"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
