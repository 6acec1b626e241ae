/*
Package factory converts ledger documents into engine types.

PURPOSE:
  Turns JSON/YAML jurisdiction definitions and stay ledgers into
  presence.Jurisdiction and generic.Stay values. This keeps threshold
  configuration out of code: a new country is a document, not a release.

JURISDICTION SCHEMA:
  {
    "country": "GB",
    "name": "United Kingdom",
    "window": {"type": "rolling", "rolling_days": 365},
    "threshold": 183,
    "buffer": 170,
    "report_windows": [
      {"type": "fiscal_year", "fiscal_start_month": 4, "fiscal_start_day": 6}
    ],
    "extended_rules": ["uk_statutory_residence_test"],
    "note": "183 days is a trigger, not the full test."
  }

VALIDATION:
  Every parsed jurisdiction is validated before it is returned, so callers
  never hold a configuration that would fail mid-computation.

USAGE:
  f := factory.NewJurisdictionFactory()
  j, err := f.ParseJurisdiction(jsonString)

SEE ALSO:
  - ledger.go: Full ledger documents
  - presence/jurisdictions.go: Built-in presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// JurisdictionJSON is the document form of a jurisdiction.
type JurisdictionJSON struct {
	Country       string       `json:"country" yaml:"country"`
	Name          string       `json:"name,omitempty" yaml:"name,omitempty"`
	Window        WindowJSON   `json:"window" yaml:"window"`
	Threshold     int          `json:"threshold" yaml:"threshold"`
	Buffer        int          `json:"buffer" yaml:"buffer"`
	ReportWindows []WindowJSON `json:"report_windows,omitempty" yaml:"report_windows,omitempty"`
	ExtendedRules []string     `json:"extended_rules,omitempty" yaml:"extended_rules,omitempty"`
	Note          string       `json:"note,omitempty" yaml:"note,omitempty"`
}

// WindowJSON represents an accounting window.
type WindowJSON struct {
	Type             string `json:"type" yaml:"type"` // rolling, fiscal_year, calendar_year
	RollingDays      int    `json:"rolling_days,omitempty" yaml:"rolling_days,omitempty"`
	FiscalStartMonth int    `json:"fiscal_start_month,omitempty" yaml:"fiscal_start_month,omitempty"`
	FiscalStartDay   int    `json:"fiscal_start_day,omitempty" yaml:"fiscal_start_day,omitempty"`
}

// =============================================================================
// JURISDICTION FACTORY
// =============================================================================

// JurisdictionFactory converts documents to jurisdictions.
type JurisdictionFactory struct{}

// NewJurisdictionFactory creates a new jurisdiction factory.
func NewJurisdictionFactory() *JurisdictionFactory {
	return &JurisdictionFactory{}
}

// ParseJurisdiction parses a JSON string into a validated Jurisdiction.
func (f *JurisdictionFactory) ParseJurisdiction(jsonStr string) (presence.Jurisdiction, error) {
	var jj JurisdictionJSON
	if err := json.Unmarshal([]byte(jsonStr), &jj); err != nil {
		return presence.Jurisdiction{}, fmt.Errorf("failed to parse jurisdiction JSON: %w", err)
	}
	return f.FromJSON(jj)
}

// FromJSON converts JurisdictionJSON to a validated presence.Jurisdiction.
func (f *JurisdictionFactory) FromJSON(jj JurisdictionJSON) (presence.Jurisdiction, error) {
	j := presence.Jurisdiction{
		Country:       generic.NormalizeCountry(jj.Country),
		Name:          jj.Name,
		Window:        parseWindow(jj.Window),
		Threshold:     jj.Threshold,
		Buffer:        jj.Buffer,
		ExtendedRules: jj.ExtendedRules,
		Note:          jj.Note,
	}
	if j.Name == "" {
		j.Name = string(j.Country)
	}
	for _, w := range jj.ReportWindows {
		j.ReportWindows = append(j.ReportWindows, parseWindow(w))
	}

	if err := j.Validate(); err != nil {
		return presence.Jurisdiction{}, err
	}
	return j, nil
}

// ToJSON converts a Jurisdiction to JurisdictionJSON.
func (f *JurisdictionFactory) ToJSON(j presence.Jurisdiction) JurisdictionJSON {
	jj := JurisdictionJSON{
		Country:       string(j.Country),
		Name:          j.Name,
		Window:        windowToJSON(j.Window),
		Threshold:     j.Threshold,
		Buffer:        j.Buffer,
		ExtendedRules: j.ExtendedRules,
		Note:          j.Note,
	}
	for _, w := range j.ReportWindows {
		jj.ReportWindows = append(jj.ReportWindows, windowToJSON(w))
	}
	return jj
}

// MarshalJurisdiction returns the JSON document for j.
func (f *JurisdictionFactory) MarshalJurisdiction(j presence.Jurisdiction) (string, error) {
	data, err := json.Marshal(f.ToJSON(j))
	if err != nil {
		return "", fmt.Errorf("failed to marshal jurisdiction: %w", err)
	}
	return string(data), nil
}

// ParseWindow converts and validates a standalone window document.
func (f *JurisdictionFactory) ParseWindow(w WindowJSON) (generic.PeriodConfig, error) {
	pc := parseWindow(w)
	if err := pc.Validate(); err != nil {
		return generic.PeriodConfig{}, err
	}
	return pc, nil
}

func parseWindow(w WindowJSON) generic.PeriodConfig {
	pc := generic.PeriodConfig{
		Type:             generic.PeriodType(w.Type),
		RollingDays:      w.RollingDays,
		FiscalStartMonth: time.Month(w.FiscalStartMonth),
		FiscalStartDay:   w.FiscalStartDay,
	}
	if pc.Type == "" {
		pc.Type = generic.PeriodCalendarYear
	}
	return pc
}

func windowToJSON(pc generic.PeriodConfig) WindowJSON {
	return WindowJSON{
		Type:             string(pc.Type),
		RollingDays:      pc.RollingDays,
		FiscalStartMonth: int(pc.FiscalStartMonth),
		FiscalStartDay:   pc.FiscalStartDay,
	}
}
