/*
simulate.go - Forward projection of continuous presence

PURPOSE:
  Answers "if I stay in country C every day from D onward, on which date
  does my count first reach T?". Used twice per jurisdiction: once with the
  buffer as target, once with the hard threshold.

ALGORITHM:
  For i = 0..horizon, d = start + i:
    1. Copy the stays and append a synthetic stay {C, start, d}
    2. Count with CountIn over the window anchored at d (the same function
       current-state reporting uses)
    3. Record a trace sample at fixed checkpoints or near the target
    4. Stop on the first d with count >= target

  Overlap between the synthetic stay and real stays is harmless because
  the accumulator de-duplicates days.

TRACE:
  Samples at days 0, 1, 7, 30, 60 and 120, plus every day within
  TraceMargin of the target. Only the last TraceLimit samples are kept.

OUTCOMES:
  Reached:     TriggerDate, DaysForward, CountOnTrigger set
  Not reached: Reached=false, TriggerDate=nil, partial trace. Not an error.
*/
package presence

import "github.com/warp/residency-engine/generic"

const (
	// DefaultHorizonDays bounds the forward search.
	DefaultHorizonDays = 800

	// TraceLimit is the number of trace samples kept.
	TraceLimit = 12

	// TraceMargin records every day whose count is within this of target.
	TraceMargin = 3

	// NoteNotReached marks a simulation that exhausted its horizon.
	NoteNotReached = "not reached within simulation horizon"
)

var traceCheckpoints = map[int]bool{0: true, 1: true, 7: true, 30: true, 60: true, 120: true}

// SimulateReach searches forward from startDay for the first day on which
// the count for window reaches target, assuming continuous presence in
// country from startDay. horizonDays is the last offset tried; a negative
// horizon uses DefaultHorizonDays. The stays slice is never modified.
func SimulateReach(
	stays []generic.Stay,
	country generic.CountryCode,
	startDay generic.Date,
	target int,
	window generic.PeriodConfig,
	horizonDays int,
) SimulationResult {
	if horizonDays < 0 {
		horizonDays = DefaultHorizonDays
	}
	result := SimulationResult{
		Country:     country,
		StartDay:    startDay,
		Target:      target,
		HorizonDays: horizonDays,
	}

	// One copy for the whole run; only the synthetic slot changes per day.
	simStays := generic.CopyStays(stays, 1)
	simStays = append(simStays, generic.Stay{Country: country, Entry: startDay, Note: "simulated"})
	synthetic := &simStays[len(simStays)-1]

	trace := make([]TraceSample, 0, TraceLimit)
	d := startDay
	for i := 0; i <= horizonDays; i++ {
		exit := d
		synthetic.Exit = &exit

		count := CountIn(simStays, country, window.PeriodFor(d), d)

		if traceCheckpoints[i] || count.Days >= target-TraceMargin {
			trace = pushSample(trace, TraceSample{Day: d, Count: count.Days, WindowStart: count.Window.Start})
		}

		if count.Days >= target {
			trigger := d
			result.Reached = true
			result.TriggerDate = &trigger
			result.DaysForward = i
			result.CountOnTrigger = count.Days
			result.Trace = trace
			return result
		}
		d = d.AddDays(1)
	}

	result.Trace = trace
	result.Note = NoteNotReached
	return result
}

// pushSample appends s, dropping the oldest sample once TraceLimit is hit.
func pushSample(trace []TraceSample, s TraceSample) []TraceSample {
	if len(trace) == TraceLimit {
		copy(trace, trace[1:])
		trace = trace[:TraceLimit-1]
	}
	return append(trace, s)
}

// Project runs the buffer and threshold simulations for j from startDay.
func Project(stays []generic.Stay, j Jurisdiction, startDay generic.Date, horizonDays int) (Projection, error) {
	if err := j.Validate(); err != nil {
		return Projection{}, err
	}
	return Projection{
		Country:   j.Country,
		Buffer:    SimulateReach(stays, j.Country, startDay, j.Buffer, j.Window, horizonDays),
		Threshold: SimulateReach(stays, j.Country, startDay, j.Threshold, j.Window, horizonDays),
	}, nil
}
