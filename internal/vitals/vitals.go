package vitals

import "math"

// Penalty returns the neglect penalty accrued when hunger, thirst, or
// happiness dip below 20. Happiness weighs half.
func Penalty(hunger, thirst, happiness float64) float64 {
	return math.Max(0, 20-hunger) + math.Max(0, 20-thirst) + 0.5*math.Max(0, 20-happiness)
}

// Compute derives health from the three need stats. Health is never
// decayed directly.
func Compute(hunger, thirst, happiness float64) float64 {
	health := 100 - Penalty(hunger, thirst, happiness)

	// Clamp to [0, 100]
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}

	return health
}
