package advisor

import (
	"fmt"
	"strings"

	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// DUAL ADVISOR - Status lines and cross-jurisdiction rules
// =============================================================================

// ModeBalancedGlobal is the only advisor mode: no jurisdiction is preferred.
const ModeBalancedGlobal = "balanced_global"

// CountryStatus is the advisor view of one evaluation.
type CountryStatus struct {
	Country generic.CountryCode `json:"country"`
	Status  presence.Status     `json:"status"`
	Days    int                 `json:"days"`
	Window  string              `json:"window"`
}

// AdvisorSection is the dual_advisor.json document.
type AdvisorSection struct {
	AsOf     generic.Date    `json:"as_of"`
	Mode     string          `json:"mode"`
	Statuses []CountryStatus `json:"statuses"`
	Advice   []string        `json:"advice"`
}

// Advise turns evaluations into status lines plus cross rules:
//
//	A APPROACHING, B SAFE -> consider a short move to B or a third country
//	all SAFE              -> free to schedule
//
// Advice order follows the evaluation order.
func Advise(asOf generic.Date, evals []presence.Evaluation, windows []generic.PeriodConfig) AdvisorSection {
	section := AdvisorSection{
		AsOf:     asOf,
		Mode:     ModeBalancedGlobal,
		Statuses: make([]CountryStatus, 0, len(evals)),
		Advice:   []string{},
	}

	for i, e := range evals {
		cs := CountryStatus{Country: e.Count.Country, Status: e.Status, Days: e.Count.Days}
		if i < len(windows) {
			cs.Window = windows[i].String()
		}
		section.Statuses = append(section.Statuses, cs)

		if line := statusLine(cs, e); line != "" {
			section.Advice = append(section.Advice, line)
		}
	}

	var safe []string
	for _, cs := range section.Statuses {
		if cs.Status == presence.StatusSafe {
			safe = append(safe, string(cs.Country))
		}
	}

	for _, cs := range section.Statuses {
		if cs.Status != presence.StatusApproaching {
			continue
		}
		var targets []string
		for _, c := range safe {
			if c != string(cs.Country) {
				targets = append(targets, c)
			}
		}
		if len(targets) > 0 {
			section.Advice = append(section.Advice, fmt.Sprintf(
				"-> %s approaching: consider a short move to %s or a third country.",
				cs.Country, strings.Join(targets, " / ")))
		}
	}

	if len(section.Statuses) > 0 && len(safe) == len(section.Statuses) {
		section.Advice = append(section.Advice, "All thresholds currently safe: free to schedule.")
	}
	return section
}

func statusLine(cs CountryStatus, e presence.Evaluation) string {
	window := cs.Window
	if window == "" {
		window = "window"
	}
	switch cs.Status {
	case presence.StatusHighRisk:
		return fmt.Sprintf("%s count over %s is %d, threshold %d reached: consider reducing %s presence.",
			cs.Country, window, e.Count.Days, e.Threshold, cs.Country)
	case presence.StatusApproaching:
		return fmt.Sprintf("%s count over %s is %d, approaching %d: consider scheduling travel outside %s.",
			cs.Country, window, e.Count.Days, e.Threshold, cs.Country)
	default:
		return ""
	}
}
