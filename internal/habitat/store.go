package habitat

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/softclaw/hatchling/internal/config"
	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/mood"
	"github.com/softclaw/hatchling/internal/sim"
)

// Store owns the singleton creature state behind a constrained command API.
// Every command validates its preconditions, applies the reduction, clamps,
// stamps the save anchor, and hands a snapshot to the saver. Ineligible
// commands are silent no-ops that leave the state untouched.
type Store struct {
	mu    sync.Mutex
	state creature.State

	clock Clock
	cfg   config.Care
	rates sim.Rates
	rng   *rand.Rand
	log   *slog.Logger

	save     func(creature.State)
	onChange func(creature.State)
	settle   Timer
}

func New(initial creature.State, cfg config.Care, clock Clock) *Store {
	if initial.Cooldowns == nil {
		initial.Cooldowns = map[string]time.Time{}
	}
	if initial.Tricks == nil {
		initial.Tricks = map[string]creature.Trick{}
	}
	return &Store{
		state: initial,
		clock: clock,
		cfg:   cfg,
		rates: sim.Rates{
			Hunger:        cfg.HungerDecayPerHour,
			Thirst:        cfg.ThirstDecayPerHour,
			Happiness:     cfg.HappinessDecayPerHour,
			Energy:        cfg.EnergyDecayPerHour,
			SleepRecovery: cfg.SleepRecoveryPerHour,
			Warmth:        cfg.WarmthDecayPerHour,
		},
		rng: rand.New(rand.NewSource(clock.Now().UnixNano())),
		log: slog.Default(),
	}
}

// SetSaver installs the fire-and-forget checkpoint sink. The store never
// waits on it.
func (st *Store) SetSaver(fn func(creature.State)) {
	st.mu.Lock()
	st.save = fn
	st.mu.Unlock()
}

// SetOnChange installs a listener invoked with a snapshot after every
// applied mutation. Used by the renderer feed.
func (st *Store) SetOnChange(fn func(creature.State)) {
	st.mu.Lock()
	st.onChange = fn
	st.mu.Unlock()
}

func (st *Store) SetLogger(l *slog.Logger) {
	st.mu.Lock()
	st.log = l
	st.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() creature.State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Clone()
}

// commit stamps the save anchor and fans the new state out. Must be called
// with the lock held. The anchor never moves backward.
func (st *Store) commit(now time.Time) {
	if now.After(st.state.LastSavedTime) {
		st.state.LastSavedTime = now
	}
	st.fanOut()
}

// fanOut notifies the saver and change listener. Must be called with the
// lock held; listeners get their own clone.
func (st *Store) fanOut() {
	snap := st.state.Clone()
	if st.save != nil {
		st.save(snap)
	}
	if st.onChange != nil {
		st.onChange(snap)
	}
}

// offCooldown reports whether the action may run at now. Must be called
// with the lock held.
func (st *Store) offCooldown(action string, now time.Time) bool {
	last, ok := st.state.Cooldowns[action]
	if !ok {
		return true
	}
	return now.Sub(last) >= st.cfg.Cooldown(action)
}

// scheduleSettle arms the transient-mood settle timer, superseding any
// earlier one.
func (st *Store) scheduleSettle() {
	if st.settle != nil {
		st.settle.Stop()
	}
	st.settle = st.clock.AfterFunc(st.cfg.MoodSettleDelay(), st.settleMood)
}

func (st *Store) settleMood() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !mood.IsTransient(st.state.Mood) {
		return
	}
	st.state.Mood = mood.Derive(st.state)
	st.commit(st.clock.Now())
}

func (st *Store) pushEvent(typ, text string) {
	st.state.InteractionEvents = append(st.state.InteractionEvents, creature.InteractionEvent{
		ID:   creature.NewID(),
		Type: typ,
		Text: text,
	})
}

// ConsumeEvent removes an interaction event by id, returning it. Each event
// is handed out at most once.
func (st *Store) ConsumeEvent(id string) (creature.InteractionEvent, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, ev := range st.state.InteractionEvents {
		if ev.ID == id {
			st.state.InteractionEvents = append(st.state.InteractionEvents[:i], st.state.InteractionEvents[i+1:]...)
			st.commit(st.clock.Now())
			return ev, true
		}
	}
	return creature.InteractionEvent{}, false
}

// RemoveParticle removes an egg particle by id once the renderer is done
// with it.
func (st *Store) RemoveParticle(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, p := range st.state.Particles {
		if p.ID == id {
			st.state.Particles = append(st.state.Particles[:i], st.state.Particles[i+1:]...)
			st.commit(st.clock.Now())
			return true
		}
	}
	return false
}

// SetMuted toggles audio. Returns false when already in the requested state.
func (st *Store) SetMuted(muted bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state.IsMuted == muted {
		return false
	}
	st.state.IsMuted = muted
	st.commit(st.clock.Now())
	return true
}
