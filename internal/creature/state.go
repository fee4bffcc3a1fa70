package creature

import (
	"time"
)

type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodSick     Mood = "sick"
	MoodSleeping Mood = "sleeping"

	// Transient activity moods, set directly by actions and replaced by
	// the derivation rule after the settle delay.
	MoodEating   Mood = "eating"
	MoodDrinking Mood = "drinking"
	MoodPlaying  Mood = "playing"
)

type ParticleType string

const (
	ParticleSpeech ParticleType = "speech"
	ParticleMusic  ParticleType = "music"
)

// Particle is a short-lived egg-phase visual spawned by talk/sing actions.
// The renderer removes it by id once its float-away animation finishes.
type Particle struct {
	ID   string       `json:"id"`
	Type ParticleType `json:"type"`
	X    float64      `json:"x"`
	Y    float64      `json:"y"`
}

// InteractionEvent is one-shot feedback for the renderer (crumbs, hearts,
// confetti). Consumed exactly once by id.
type InteractionEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Trick struct {
	Learned  bool    `json:"learned"`
	Progress float64 `json:"progress"`
}

// State is the full creature snapshot, persisted as one JSON document.
// All stat fields live in [0,100].
type State struct {
	Name     string `json:"name,omitempty"`
	EggPhase bool   `json:"egg_phase"`

	// Egg phase only.
	Warmth     float64    `json:"warmth"`
	Bond       float64    `json:"bond"`
	Stability  float64    `json:"stability"`
	IsWobbling bool       `json:"is_wobbling"`
	Particles  []Particle `json:"particles,omitempty"`

	// Creature phase only.
	Hunger     float64          `json:"hunger"`
	Thirst     float64          `json:"thirst"`
	Happiness  float64          `json:"happiness"`
	Energy     float64          `json:"energy"`
	Health     float64          `json:"health"`
	Mood       Mood             `json:"mood"`
	Tricks     map[string]Trick `json:"tricks,omitempty"`
	IsSleeping bool             `json:"is_sleeping"`

	// Shared.
	Cooldowns         map[string]time.Time `json:"cooldowns,omitempty"`
	LastSavedTime     time.Time            `json:"last_saved_time"`
	IsMuted           bool                 `json:"is_muted"`
	InteractionEvents []InteractionEvent   `json:"interaction_events,omitempty"`
}

// NewEgg returns the first-run state: a calm, warm egg with zero bond.
func NewEgg(name string, now time.Time) State {
	return State{
		Name:          name,
		EggPhase:      true,
		Warmth:        100,
		Bond:          0,
		Stability:     100,
		Hunger:        100,
		Thirst:        100,
		Happiness:     100,
		Energy:        100,
		Health:        100,
		Mood:          MoodNeutral,
		Tricks:        map[string]Trick{},
		Cooldowns:     map[string]time.Time{},
		LastSavedTime: now,
	}
}

// Clone returns a deep copy so readers never alias the store's maps and
// slices.
func (s State) Clone() State {
	out := s
	if s.Particles != nil {
		out.Particles = append([]Particle(nil), s.Particles...)
	}
	if s.InteractionEvents != nil {
		out.InteractionEvents = append([]InteractionEvent(nil), s.InteractionEvents...)
	}
	if s.Tricks != nil {
		out.Tricks = make(map[string]Trick, len(s.Tricks))
		for k, v := range s.Tricks {
			out.Tricks[k] = v
		}
	}
	if s.Cooldowns != nil {
		out.Cooldowns = make(map[string]time.Time, len(s.Cooldowns))
		for k, v := range s.Cooldowns {
			out.Cooldowns[k] = v
		}
	}
	return out
}

// Clamp bounds a stat to [0,100].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
