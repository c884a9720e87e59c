// Package metrics defines the instrumentation surface for vote attempts:
// outcome counters and per-step latency.
package metrics

import "time"

// Step labels for latency observations.
const (
	StepNegotiate = "negotiate"
	StepBuild     = "build"
	StepSign      = "sign"
	StepSubmit    = "submit"
	StepConfirm   = "confirm"
)

// Recorder receives vote protocol events.
type Recorder interface {
	// IncOutcome counts one finished vote attempt by outcome code
	// ("success" or a VoteError code).
	IncOutcome(code string)
	// ObserveStep records how long one protocol step took.
	ObserveStep(step string, d time.Duration)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) IncOutcome(string)                 {}
func (Noop) ObserveStep(string, time.Duration) {}
