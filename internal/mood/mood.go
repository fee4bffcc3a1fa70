package mood

import (
	"github.com/softclaw/hatchling/internal/creature"
)

// Derive returns the steady-state mood for the given stats. The rules are
// checked in priority order; the first match wins.
func Derive(s creature.State) creature.Mood {
	// Priority 1: asleep overrides everything
	if s.IsSleeping {
		return creature.MoodSleeping
	}

	// Priority 2: sick
	if s.Health < 40 {
		return creature.MoodSick
	}

	// Priority 3: sad (any need running low)
	if s.Happiness < 40 || s.Hunger < 30 || s.Thirst < 30 {
		return creature.MoodSad
	}

	// Priority 4: happy (well fed and well)
	if s.Happiness > 70 && s.Health > 70 {
		return creature.MoodHappy
	}

	return creature.MoodNeutral
}

// IsTransient reports whether m is one of the short-lived activity moods
// set directly by actions.
func IsTransient(m creature.Mood) bool {
	switch m {
	case creature.MoodEating, creature.MoodDrinking, creature.MoodPlaying:
		return true
	}
	return false
}
