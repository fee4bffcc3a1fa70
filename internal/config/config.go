package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultTickSeconds     = 5
	DefaultCheckSeconds    = 60
	DefaultWobbleMinSec    = 30
	DefaultWobbleMaxSec    = 90
	DefaultMoodSettleMs    = 2000
	DefaultWarmRepeatMs    = 500
	DefaultSaveDebounceMs  = 250
	DefaultSleepStartHour  = 22
	DefaultSleepEndHour    = 6
	DefaultStorageBackend  = "file"
)

// Care is the den configuration, stored as care.toml alongside the state.
type Care struct {
	Version string `toml:"version"`
	Name    string `toml:"name"`

	// Decay rates in points per hour.
	HungerDecayPerHour    float64 `toml:"hungerDecayPerHour"`
	ThirstDecayPerHour    float64 `toml:"thirstDecayPerHour"`
	HappinessDecayPerHour float64 `toml:"happinessDecayPerHour"`
	EnergyDecayPerHour    float64 `toml:"energyDecayPerHour"`
	SleepRecoveryPerHour  float64 `toml:"sleepRecoveryPerHour"`
	WarmthDecayPerHour    float64 `toml:"warmthDecayPerHour"`

	// Action cooldowns in milliseconds.
	FeedCooldownMs  int `toml:"feedCooldownMs"`
	WaterCooldownMs int `toml:"waterCooldownMs"`
	PlayCooldownMs  int `toml:"playCooldownMs"`
	PetCooldownMs   int `toml:"petCooldownMs"`
	TeachCooldownMs int `toml:"teachCooldownMs"`

	// Engine timing.
	TickSeconds    int `toml:"tickSeconds"`
	CheckSeconds   int `toml:"checkSeconds"`
	WobbleMinSec   int `toml:"wobbleMinSec"`
	WobbleMaxSec   int `toml:"wobbleMaxSec"`
	MoodSettleMs   int `toml:"moodSettleMs"`
	WarmRepeatMs   int `toml:"warmRepeatMs"`
	SaveDebounceMs int `toml:"saveDebounceMs"`

	// Night window for automatic sleep, local hours [start, end).
	SleepStartHour int `toml:"sleepStartHour"`
	SleepEndHour   int `toml:"sleepEndHour"`

	Tricks []string `toml:"tricks"`

	// Storage: "file", "sqlite", or "memory".
	StorageBackend string `toml:"storageBackend"`
	Compress       bool   `toml:"compress"`
	Journal        bool   `toml:"journal"`
}

// Env carries process-level overrides (fracturing.space pattern): the den
// location, storage backend, and the renderer listen address.
type Env struct {
	Den     string `env:"HATCHLING_DEN"`
	Backend string `env:"HATCHLING_BACKEND"`
	Listen  string `env:"HATCHLING_LISTEN"`
}

// ParseEnv loads overrides from HATCHLING_* environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Default returns the compiled-in care settings.
func Default(name string) Care {
	return Care{
		Version:               "1.0",
		Name:                  name,
		HungerDecayPerHour:    10,
		ThirstDecayPerHour:    15,
		HappinessDecayPerHour: 5,
		EnergyDecayPerHour:    8,
		SleepRecoveryPerHour:  20,
		WarmthDecayPerHour:    15,
		FeedCooldownMs:        30000,
		WaterCooldownMs:       25000,
		PlayCooldownMs:        45000,
		PetCooldownMs:         15000,
		TeachCooldownMs:       60000,
		TickSeconds:           DefaultTickSeconds,
		CheckSeconds:          DefaultCheckSeconds,
		WobbleMinSec:          DefaultWobbleMinSec,
		WobbleMaxSec:          DefaultWobbleMaxSec,
		MoodSettleMs:          DefaultMoodSettleMs,
		WarmRepeatMs:          DefaultWarmRepeatMs,
		SaveDebounceMs:        DefaultSaveDebounceMs,
		SleepStartHour:        DefaultSleepStartHour,
		SleepEndHour:          DefaultSleepEndHour,
		Tricks:                []string{"sit", "roll", "sing", "dance"},
		StorageBackend:        DefaultStorageBackend,
		Compress:              false,
		Journal:               false,
	}
}

// Load reads care.toml from path. A missing file yields defaults.
func Load(path, name string) (Care, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(name), nil
		}
		return Care{}, fmt.Errorf("failed to read care config: %w", err)
	}

	c := Default(name)
	if err := toml.Unmarshal(data, &c); err != nil {
		return Care{}, fmt.Errorf("failed to parse care config: %w", err)
	}
	return c, nil
}

// Save writes care.toml to path.
func Save(c Care, path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal care config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write care config: %w", err)
	}
	return nil
}

func (c Care) TickInterval() time.Duration    { return time.Duration(c.TickSeconds) * time.Second }
func (c Care) CheckInterval() time.Duration   { return time.Duration(c.CheckSeconds) * time.Second }
func (c Care) MoodSettleDelay() time.Duration { return time.Duration(c.MoodSettleMs) * time.Millisecond }
func (c Care) WarmRepeat() time.Duration      { return time.Duration(c.WarmRepeatMs) * time.Millisecond }
func (c Care) SaveDebounce() time.Duration    { return time.Duration(c.SaveDebounceMs) * time.Millisecond }

func (c Care) Cooldown(action string) time.Duration {
	var ms int
	switch action {
	case "feed":
		ms = c.FeedCooldownMs
	case "water":
		ms = c.WaterCooldownMs
	case "play":
		ms = c.PlayCooldownMs
	case "pet":
		ms = c.PetCooldownMs
	case "teach":
		ms = c.TeachCooldownMs
	}
	return time.Duration(ms) * time.Millisecond
}

// InNightWindow reports whether the local hour falls inside the automatic
// sleep window. The window wraps midnight when start > end.
func (c Care) InNightWindow(now time.Time) bool {
	h := now.Local().Hour()
	if c.SleepStartHour > c.SleepEndHour {
		return h >= c.SleepStartHour || h < c.SleepEndHour
	}
	return h >= c.SleepStartHour && h < c.SleepEndHour
}
