package presence

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// THRESHOLD EVALUATOR
// =============================================================================

// Classify maps a day count to a status:
//
//	count >= hard           -> HIGH_RISK
//	buffer <= count < hard  -> APPROACHING
//	otherwise               -> SAFE
//
// A buffer at or above the hard threshold is a configuration error.
func Classify(count, buffer, hard int) (Status, error) {
	if buffer >= hard {
		return "", &generic.ConfigError{
			Field:  "buffer",
			Reason: fmt.Sprintf("buffer %d must be below threshold %d", buffer, hard),
		}
	}
	switch {
	case count >= hard:
		return StatusHighRisk, nil
	case count >= buffer:
		return StatusApproaching, nil
	default:
		return StatusSafe, nil
	}
}

// Evaluate classifies count against j's threshold and buffer.
func Evaluate(j Jurisdiction, count DayCount) (Evaluation, error) {
	if err := j.Validate(); err != nil {
		return Evaluation{}, err
	}
	status, err := Classify(count.Days, j.Buffer, j.Threshold)
	if err != nil {
		return Evaluation{}, scoped(err, string(j.Country))
	}

	remaining := j.Threshold - count.Days
	if remaining < 0 {
		remaining = 0
	}
	return Evaluation{
		Count:        count,
		Threshold:    j.Threshold,
		Buffer:       j.Buffer,
		Status:       status,
		ThresholdMet: count.Days >= j.Threshold,
		Remaining:    remaining,
		Utilization: decimal.NewFromInt(int64(count.Days)).
			Div(decimal.NewFromInt(int64(j.Threshold))).
			Round(4),
	}, nil
}
