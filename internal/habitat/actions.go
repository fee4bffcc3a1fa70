package habitat

import (
	"fmt"

	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/vitals"
)

// Action names double as cooldown keys and interaction event types.
const (
	ActionFeed  = "feed"
	ActionWater = "water"
	ActionPlay  = "play"
	ActionPet   = "pet"
	ActionTeach = "teach"
)

// creatureAction runs one guarded, atomic creature-phase transition.
// Preconditions shared by all creature actions: hatched, awake, off
// cooldown. A failed guard leaves the state (and the save anchor)
// untouched.
func (st *Store) creatureAction(name string, transient creature.Mood, guard func(creature.State) bool, apply func(*creature.State)) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state.EggPhase || st.state.IsSleeping {
		return false
	}
	now := st.clock.Now()
	if !st.offCooldown(name, now) {
		return false
	}
	if guard != nil && !guard(st.state) {
		return false
	}

	apply(&st.state)
	st.state.Hunger = creature.Clamp(st.state.Hunger)
	st.state.Thirst = creature.Clamp(st.state.Thirst)
	st.state.Happiness = creature.Clamp(st.state.Happiness)
	st.state.Energy = creature.Clamp(st.state.Energy)
	st.state.Health = vitals.Compute(st.state.Hunger, st.state.Thirst, st.state.Happiness)

	st.state.Mood = transient
	st.scheduleSettle()

	st.state.Cooldowns[name] = now
	st.commit(now)
	return true
}

// Feed tops up hunger.
func (st *Store) Feed() bool {
	return st.creatureAction(ActionFeed, creature.MoodEating, nil, func(s *creature.State) {
		s.Hunger += 30
		st.pushEvent(ActionFeed, "Yum!")
	})
}

// GiveWater tops up thirst.
func (st *Store) GiveWater() bool {
	return st.creatureAction(ActionWater, creature.MoodDrinking, nil, func(s *creature.State) {
		s.Thirst += 40
		st.pushEvent(ActionWater, "Gulp gulp")
	})
}

// Play trades energy for happiness.
func (st *Store) Play() bool {
	return st.creatureAction(ActionPlay, creature.MoodPlaying, nil, func(s *creature.State) {
		s.Happiness += 20
		s.Energy -= 10
		st.pushEvent(ActionPlay, "Wheee!")
	})
}

// Pet gives a small happiness boost.
func (st *Store) Pet() bool {
	return st.creatureAction(ActionPet, creature.MoodHappy, nil, func(s *creature.State) {
		s.Happiness += 10
		st.pushEvent(ActionPet, "Purr...")
	})
}

// Teach practices a trick. Progress moves faster when the creature is
// delighted; learned latches permanently once progress reaches 100.
func (st *Store) Teach(trick string) bool {
	guard := func(s creature.State) bool {
		if t, ok := s.Tricks[trick]; ok && t.Learned {
			return false
		}
		return s.Energy >= 20 && s.Happiness >= 40
	}
	return st.creatureAction(ActionTeach, creature.MoodPlaying, guard, func(s *creature.State) {
		bonus := 5.0
		if s.Happiness > 80 {
			bonus = 15
		}

		t := s.Tricks[trick]
		t.Progress = creature.Clamp(t.Progress + bonus)
		if t.Progress >= 100 {
			t.Learned = true
		}
		s.Tricks[trick] = t
		s.Energy -= 15

		if t.Learned {
			st.pushEvent(ActionTeach, fmt.Sprintf("Learned %s!", trick))
		} else {
			st.pushEvent(ActionTeach, fmt.Sprintf("Practicing %s", trick))
		}
	})
}
