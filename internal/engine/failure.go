package engine

import "math/rand"

// DefaultFailureRate is the per-stage probability of an injected failure.
const DefaultFailureRate = 0.05

// FailurePolicy decides whether a stage suffers an injected failure.
//
// The driver consults the policy once per stage, after the stage's delay
// and before the transition. The validation stage is exempt at the driver
// level; the policy is never asked about it.
//
// Implemented by RandomFailures (production), NoFailures and FailAt (tests).
type FailurePolicy interface {
	ShouldFail(stage State) bool
}

// RandomFailures injects failures with a fixed probability per stage.
//
// Uses the shared math/rand/v2 source, which is safe for concurrent use.
// Tests needing determinism should inject NoFailures or FailAt instead of
// seeding this policy.
type RandomFailures struct {
	Rate float64
}

// NewRandomFailures creates a policy failing each eligible stage with
// probability rate. Rates outside [0, 1] are clamped.
func NewRandomFailures(rate float64) RandomFailures {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return RandomFailures{Rate: rate}
}

// ShouldFail rolls once against the configured rate.
func (p RandomFailures) ShouldFail(State) bool {
	return rand.Float64() < p.Rate
}

// NoFailures never injects a failure. The zero value is ready to use.
type NoFailures struct{}

// ShouldFail always returns false.
func (NoFailures) ShouldFail(State) bool { return false }

// FailAt fails deterministically at one stage and succeeds everywhere else.
type FailAt struct {
	Stage State
}

// ShouldFail returns true only for the configured stage.
func (p FailAt) ShouldFail(stage State) bool {
	return stage == p.Stage
}
