package habitat

import (
	"github.com/softclaw/hatchling/internal/creature"
)

// WarmEgg nudges warmth up. The renderer repeats this at a fixed interval
// while a press is held.
func (st *Store) WarmEgg() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase {
		return false
	}
	st.state.Warmth = creature.Clamp(st.state.Warmth + 15)
	st.commit(st.clock.Now())
	return true
}

// TalkToEgg builds bond. A shaky egg hears less of it.
func (st *Store) TalkToEgg() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase {
		return false
	}
	gain := 5.0
	if st.state.Stability < 50 {
		gain = 2
	}
	st.state.Bond = creature.Clamp(st.state.Bond + gain)
	st.spawnParticle(creature.ParticleSpeech)
	st.commit(st.clock.Now())
	return true
}

// SingToEgg builds bond faster, but only a warm egg listens.
func (st *Store) SingToEgg() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase || st.state.Warmth < 60 {
		return false
	}
	gain := 10.0
	if st.state.Stability < 50 {
		gain = 5
	}
	st.state.Bond = creature.Clamp(st.state.Bond + gain)
	st.spawnParticle(creature.ParticleMusic)
	st.commit(st.clock.Now())
	return true
}

// SteadyEgg calms a wobbling egg and restores stability.
func (st *Store) SteadyEgg() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase || !st.state.IsWobbling {
		return false
	}
	st.state.IsWobbling = false
	st.state.Stability = 100
	st.commit(st.clock.Now())
	return true
}

// TriggerWobble starts a wobble. Fired by the engine's randomized timer;
// once hatched it is a permanent no-op, which is what stops the timer
// chain from having any effect.
func (st *Store) TriggerWobble() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase || st.state.IsWobbling {
		return false
	}
	st.state.IsWobbling = true
	st.commit(st.clock.Now())
	return true
}

// spawnParticle appends a particle at a randomized offset around the egg.
// Must be called with the lock held.
func (st *Store) spawnParticle(typ creature.ParticleType) {
	st.state.Particles = append(st.state.Particles, creature.Particle{
		ID:   creature.NewID(),
		Type: typ,
		X:    st.rng.Float64()*48 - 24,
		Y:    -10 - st.rng.Float64()*30,
	})
}

// CheckHatch fires the one-way egg to hatchling transition once bond is
// full. The engine calls this continuously; it is not a player action.
func (st *Store) CheckHatch() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.state.EggPhase || st.state.Bond < 100 {
		return false
	}

	st.state.EggPhase = false
	st.state.Bond = 100
	st.state.IsWobbling = false
	st.state.Hunger = 100
	st.state.Thirst = 100
	st.state.Happiness = 100
	st.state.Energy = 100
	st.state.Health = 100
	st.state.Mood = creature.MoodHappy

	st.log.Info("hatched", "name", st.state.Name)
	st.pushEvent("hatch", "The egg hatched!")
	st.commit(st.clock.Now())
	return true
}
