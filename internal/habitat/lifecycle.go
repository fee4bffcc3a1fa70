package habitat

import (
	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/mood"
	"github.com/softclaw/hatchling/internal/sim"
)

// Sleep puts the hatchling to bed. Mood is set directly; the derivation
// rule takes over again on wake.
func (st *Store) Sleep() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state.EggPhase || st.state.IsSleeping {
		return false
	}
	st.state.IsSleeping = true
	st.state.Mood = creature.MoodSleeping
	st.commit(st.clock.Now())
	return true
}

// WakeUp rouses the hatchling and re-derives mood.
func (st *Store) WakeUp() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state.EggPhase || !st.state.IsSleeping {
		return false
	}
	st.state.IsSleeping = false
	st.state.Mood = mood.Derive(st.state)
	st.commit(st.clock.Now())
	return true
}

// LiveTick applies one fixed-interval decay step. Driven by the engine's
// short-period ticker.
func (st *Store) LiveTick() {
	st.mu.Lock()
	defer st.mu.Unlock()

	elapsed := st.cfg.TickInterval().Hours()
	st.state = sim.Step(st.state, elapsed, st.rates)
	st.commit(st.clock.Now())
}

// CatchUp reconciles decay accrued while the process was away, anchored to
// the last save. Sub-epsilon gaps are skipped entirely.
func (st *Store) CatchUp() bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	next, applied := sim.CatchUp(st.state, now, st.rates)
	if !applied {
		return false
	}
	st.state = next
	st.commit(now)
	return true
}

// ScheduleCheck runs the slow-path automation: night-time sleep and
// morning wake. Driven by the engine's long-period ticker.
func (st *Store) ScheduleCheck() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state.EggPhase {
		return
	}

	night := st.cfg.InNightWindow(st.clock.Now())
	switch {
	case night && !st.state.IsSleeping && st.state.Energy < 30:
		st.state.IsSleeping = true
		st.state.Mood = creature.MoodSleeping
		st.log.Debug("auto sleep", "energy", st.state.Energy)
		st.commit(st.clock.Now())
	case !night && st.state.IsSleeping && st.state.Energy > 80:
		st.state.IsSleeping = false
		st.state.Mood = mood.Derive(st.state)
		st.log.Debug("auto wake", "energy", st.state.Energy)
		st.commit(st.clock.Now())
	}
}
