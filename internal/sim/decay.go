package sim

import (
	"time"

	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/mood"
	"github.com/softclaw/hatchling/internal/vitals"
)

// Rates are stat decay speeds in points per hour.
type Rates struct {
	Hunger    float64
	Thirst    float64
	Happiness float64
	Energy    float64
	// SleepRecovery replaces energy decay while asleep.
	SleepRecovery float64
	// Warmth applies during egg phase only.
	Warmth float64
}

func DefaultRates() Rates {
	return Rates{
		Hunger:        10,
		Thirst:        15,
		Happiness:     5,
		Energy:        8,
		SleepRecovery: 20,
		Warmth:        15,
	}
}

// EpsilonHours is the minimum elapsed time worth reconciling on resume
// (~36s); anything shorter is a no-op to avoid thrashing on rapid re-entry.
const EpsilonHours = 0.01

// WobblePenaltyHours is how long an egg must be left wobbling offline
// before it takes the one-time stability hit.
const WobblePenaltyHours = 0.1

const wobbleStabilityPenalty = 50

// Step applies elapsedHours of decay and returns the next state. Pure: the
// same math serves both the live tick and offline catch-up. LastSavedTime
// is the caller's to stamp.
func Step(s creature.State, elapsedHours float64, r Rates) creature.State {
	if elapsedHours <= 0 {
		return s
	}

	if s.EggPhase {
		s.Warmth = creature.Clamp(s.Warmth - elapsedHours*r.Warmth)
		return s
	}

	s.Hunger = creature.Clamp(s.Hunger - elapsedHours*r.Hunger)
	s.Thirst = creature.Clamp(s.Thirst - elapsedHours*r.Thirst)
	s.Happiness = creature.Clamp(s.Happiness - elapsedHours*r.Happiness)

	if s.IsSleeping {
		// Energy recovers instead of decaying
		s.Energy = creature.Clamp(s.Energy + elapsedHours*r.SleepRecovery)
	} else {
		s.Energy = creature.Clamp(s.Energy - elapsedHours*r.Energy)
	}

	s.Health = vitals.Compute(s.Hunger, s.Thirst, s.Happiness)
	s.Mood = mood.Derive(s)
	return s
}

// CatchUp reconciles decay for wall-clock time spent away, anchored to
// LastSavedTime. Returns the next state and whether anything was applied.
func CatchUp(s creature.State, now time.Time, r Rates) (creature.State, bool) {
	if s.LastSavedTime.IsZero() {
		return s, false
	}

	elapsed := now.Sub(s.LastSavedTime).Hours()
	if elapsed < EpsilonHours {
		return s, false
	}

	if s.EggPhase && s.IsWobbling && elapsed > WobblePenaltyHours {
		// One-time penalty for leaving a wobbling egg unattended, not per-hour.
		s.Stability = creature.Clamp(s.Stability - wobbleStabilityPenalty)
	}

	return Step(s, elapsed, r), true
}
