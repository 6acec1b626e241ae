package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// LEDGER DOCUMENT
// =============================================================================
//
// YAML (v3) ledger:
//
//   meta:
//     count_method: inclusive
//   stays:
//     - {country: GB, entry: 2025-01-03, exit: 2025-03-01}
//     - {country: CN, entry: 2025-03-02}            # ongoing
//   thresholds:                                      # legacy block
//     uk:
//       rolling_days_window: 365
//       rolling_day_threshold: 183
//       tax_year: {starts_month: 4, starts_day: 6}
//     cn:
//       calendar_year_day_threshold: 183
//       six_year_rule: {enabled: true}
//   jurisdictions:                                   # overrides by country
//     - {country: DE, window: {type: calendar_year}, threshold: 183, buffer: 150}
//
// JSON (v2) ledger: {"stays": [...]} with the same stay fields.

// Ledger is a parsed, validated ledger document.
type Ledger struct {
	Meta          LedgerMeta              `json:"meta"`
	Stays         []generic.Stay          `json:"stays"`
	Jurisdictions []presence.Jurisdiction `json:"jurisdictions"`
}

// LedgerMeta carries free-form ledger metadata.
type LedgerMeta struct {
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`
	CountMethod string `json:"count_method,omitempty" yaml:"count_method,omitempty"`
}

// Jurisdiction returns the configuration for country.
func (l *Ledger) Jurisdiction(country generic.CountryCode) (presence.Jurisdiction, error) {
	for _, j := range l.Jurisdictions {
		if j.Country == country {
			return j, nil
		}
	}
	return presence.Jurisdiction{}, fmt.Errorf("%w: %s", generic.ErrJurisdictionNotFound, country)
}

// LedgerDoc is the raw document shape shared by YAML and JSON.
type LedgerDoc struct {
	Meta          LedgerMeta         `json:"meta" yaml:"meta"`
	Stays         []StayJSON         `json:"stays" yaml:"stays"`
	Thresholds    *ThresholdsDoc     `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Jurisdictions []JurisdictionJSON `json:"jurisdictions,omitempty" yaml:"jurisdictions,omitempty"`
}

// StayJSON is the document form of a stay. Dates stay strings until parsed
// so a malformed value can be reported with its record position.
type StayJSON struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Country string `json:"country" yaml:"country"`
	Entry   string `json:"entry" yaml:"entry"`
	Exit    string `json:"exit,omitempty" yaml:"exit,omitempty"`
	Note    string `json:"note,omitempty" yaml:"note,omitempty"`
}

// ThresholdsDoc is the legacy per-country threshold block.
type ThresholdsDoc struct {
	UK *struct {
		RollingDaysWindow   int `json:"rolling_days_window" yaml:"rolling_days_window"`
		RollingDayThreshold int `json:"rolling_day_threshold" yaml:"rolling_day_threshold"`
		Buffer              int `json:"buffer,omitempty" yaml:"buffer,omitempty"`
		TaxYear             *struct {
			StartsMonth int `json:"starts_month" yaml:"starts_month"`
			StartsDay   int `json:"starts_day" yaml:"starts_day"`
		} `json:"tax_year,omitempty" yaml:"tax_year,omitempty"`
	} `json:"uk,omitempty" yaml:"uk,omitempty"`

	CN *struct {
		CalendarYearDayThreshold int `json:"calendar_year_day_threshold" yaml:"calendar_year_day_threshold"`
		Buffer                   int `json:"buffer,omitempty" yaml:"buffer,omitempty"`
		SixYearRule              struct {
			Enabled bool `json:"enabled" yaml:"enabled"`
		} `json:"six_year_rule" yaml:"six_year_rule"`
	} `json:"cn,omitempty" yaml:"cn,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// LoadLedger reads a ledger file, choosing the decoder by extension
// (.json -> JSON, anything else -> YAML).
func LoadLedger(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseLedgerJSON(data)
	}
	return ParseLedgerYAML(data)
}

// ParseLedgerYAML parses a YAML ledger document.
func ParseLedgerYAML(data []byte) (*Ledger, error) {
	var doc LedgerDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ledger YAML: %w", err)
	}
	return FromDoc(doc)
}

// ParseLedgerJSON parses a JSON ledger document.
func ParseLedgerJSON(data []byte) (*Ledger, error) {
	var doc LedgerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ledger JSON: %w", err)
	}
	return FromDoc(doc)
}

// FromDoc validates a raw document. The first malformed record aborts
// parsing; there is no partial result.
func FromDoc(doc LedgerDoc) (*Ledger, error) {
	stays, err := ParseStays(doc.Stays)
	if err != nil {
		return nil, err
	}
	jurisdictions, err := buildJurisdictions(doc)
	if err != nil {
		return nil, err
	}
	return &Ledger{Meta: doc.Meta, Stays: stays, Jurisdictions: jurisdictions}, nil
}

// ParseStays converts document stays, reporting the index of the first bad one.
func ParseStays(docs []StayJSON) ([]generic.Stay, error) {
	stays := make([]generic.Stay, 0, len(docs))
	for i, sj := range docs {
		s, err := ParseStay(sj)
		if err != nil {
			return nil, locate(err, fmt.Sprintf("stays[%d]", i))
		}
		stays = append(stays, s)
	}
	return stays, nil
}

// ParseStay converts and validates a single document stay.
func ParseStay(sj StayJSON) (generic.Stay, error) {
	entry, err := generic.ParseDate(sj.Entry)
	if err != nil {
		return generic.Stay{}, fieldError(err, "entry")
	}
	s := generic.Stay{
		ID:      sj.ID,
		Country: generic.NormalizeCountry(sj.Country),
		Entry:   entry,
		Note:    sj.Note,
	}
	if strings.TrimSpace(sj.Exit) != "" {
		exit, err := generic.ParseDate(sj.Exit)
		if err != nil {
			return generic.Stay{}, fieldError(err, "exit")
		}
		s.Exit = &exit
	}
	if err := s.Validate(); err != nil {
		return generic.Stay{}, err
	}
	return s, nil
}

// StayToJSON is the inverse of ParseStay.
func StayToJSON(s generic.Stay) StayJSON {
	sj := StayJSON{ID: s.ID, Country: string(s.Country), Entry: s.Entry.String(), Note: s.Note}
	if s.Exit != nil {
		sj.Exit = s.Exit.String()
	}
	return sj
}

func fieldError(err error, field string) error {
	if pe, ok := err.(*generic.ParseError); ok {
		return pe.WithRecord("", field)
	}
	return err
}

func locate(err error, record string) error {
	if pe, ok := err.(*generic.ParseError); ok {
		return pe.WithRecord(record, pe.Field)
	}
	return fmt.Errorf("%s: %w", record, err)
}

// buildJurisdictions merges the legacy thresholds block with the explicit
// jurisdictions list. Explicit entries replace legacy ones for the same
// country. With neither present the built-in defaults apply.
func buildJurisdictions(doc LedgerDoc) ([]presence.Jurisdiction, error) {
	if doc.Thresholds == nil && len(doc.Jurisdictions) == 0 {
		return presence.Defaults(), nil
	}

	var out []presence.Jurisdiction
	if t := doc.Thresholds; t != nil {
		if t.UK != nil {
			uk := presence.UnitedKingdom()
			if t.UK.RollingDaysWindow > 0 {
				uk.Window.RollingDays = t.UK.RollingDaysWindow
			}
			if t.UK.RollingDayThreshold > 0 {
				uk.Threshold = t.UK.RollingDayThreshold
			}
			if t.UK.Buffer > 0 {
				uk.Buffer = t.UK.Buffer
			}
			if t.UK.TaxYear != nil {
				uk.ReportWindows = []generic.PeriodConfig{{
					Type:             generic.PeriodFiscalYear,
					FiscalStartMonth: time.Month(t.UK.TaxYear.StartsMonth),
					FiscalStartDay:   t.UK.TaxYear.StartsDay,
				}}
			}
			out = append(out, uk)
		}
		if t.CN != nil {
			cn := presence.China()
			if t.CN.CalendarYearDayThreshold > 0 {
				cn.Threshold = t.CN.CalendarYearDayThreshold
			}
			if t.CN.Buffer > 0 {
				cn.Buffer = t.CN.Buffer
			}
			if !t.CN.SixYearRule.Enabled {
				cn.ExtendedRules = nil
			}
			out = append(out, cn)
		}
	}

	f := NewJurisdictionFactory()
	for i, jj := range doc.Jurisdictions {
		j, err := f.FromJSON(jj)
		if err != nil {
			return nil, fmt.Errorf("jurisdictions[%d]: %w", i, err)
		}
		out = replaceOrAppend(out, j)
	}

	for _, j := range out {
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("thresholds: %w", err)
		}
	}
	return out, nil
}

func replaceOrAppend(js []presence.Jurisdiction, j presence.Jurisdiction) []presence.Jurisdiction {
	for i := range js {
		if js[i].Country == j.Country {
			js[i] = j
			return js
		}
	}
	return append(js, j)
}
