package economy

import (
	"math/rand"

	"newapi-suite-bot/config"
)

// Outcome classifies one resolved heist roll.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	OutcomeCritical
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "FAILURE"
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// ResolveOutcome rolls one heist attempt. Pure: the only inputs are the
// config and the RNG stream. Returns the outcome and the display-unit
// magnitude — a flat penalty for FAILURE, otherwise a uniform draw in
// [MinAmount, MaxAmount], doubled on a critical.
func ResolveOutcome(rng *rand.Rand, cfg config.Heist) (Outcome, float64) {
	if rng.Float64() < cfg.FailureChance {
		return OutcomeFailure, cfg.FailurePenalty
	}

	lo, hi := cfg.MinAmount, cfg.MaxAmount
	if lo > hi {
		// Operator misconfiguration; normalize instead of failing.
		lo, hi = hi, lo
	}
	base := lo + rng.Float64()*(hi-lo)

	if rng.Float64() < cfg.CriticalChance {
		return OutcomeCritical, base * 2
	}
	return OutcomeSuccess, base
}
