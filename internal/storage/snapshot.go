package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/softclaw/hatchling/internal/creature"
)

// StateKey is the fixed storage key the one snapshot document lives under.
const StateKey = "creature_state"

const snapshotVersion = 1

// Envelope wraps the state snapshot with a version header so the format
// can evolve without silently misreading old saves.
type Envelope struct {
	Version int            `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	State   creature.State `json:"state"`
}

// snapshotSchema is checked on load before the strict unmarshal; anything
// that fails it is treated as a missing save.
const snapshotSchema = `{
	"type": "object",
	"required": ["version", "state"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"saved_at": {"type": "string"},
		"state": {
			"type": "object",
			"required": ["egg_phase", "last_saved_time"],
			"properties": {
				"egg_phase": {"type": "boolean"},
				"warmth": {"type": "number", "minimum": 0, "maximum": 100},
				"bond": {"type": "number", "minimum": 0, "maximum": 100},
				"stability": {"type": "number", "minimum": 0, "maximum": 100},
				"is_wobbling": {"type": "boolean"},
				"hunger": {"type": "number", "minimum": 0, "maximum": 100},
				"thirst": {"type": "number", "minimum": 0, "maximum": 100},
				"happiness": {"type": "number", "minimum": 0, "maximum": 100},
				"energy": {"type": "number", "minimum": 0, "maximum": 100},
				"health": {"type": "number", "minimum": 0, "maximum": 100},
				"mood": {"type": "string"},
				"is_sleeping": {"type": "boolean"},
				"is_muted": {"type": "boolean"},
				"particles": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["id", "type"],
						"properties": {
							"id": {"type": "string", "minLength": 1},
							"type": {"enum": ["speech", "music"]}
						}
					}
				},
				"interaction_events": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["id", "type"],
						"properties": {
							"id": {"type": "string", "minLength": 1},
							"type": {"type": "string", "minLength": 1}
						}
					}
				}
			}
		}
	}
}`

// Adapter serializes the snapshot through a Backend. Saves are debounced
// and fire-and-forget; loads fall back to "no save" on any malformed or
// invalid data instead of failing startup. Backend errors and panics stop
// at this boundary.
type Adapter struct {
	backend  Backend
	debounce time.Duration
	schema   *jsonschema.Schema
	log      *slog.Logger

	mu      sync.Mutex
	pending *creature.State
	timer   *time.Timer
}

func NewAdapter(backend Backend, debounce time.Duration) *Adapter {
	schema := jsonschema.MustCompileString("snapshot.schema.json", snapshotSchema)
	return &Adapter{
		backend:  backend,
		debounce: debounce,
		schema:   schema,
		log:      slog.Default(),
	}
}

func (a *Adapter) SetLogger(l *slog.Logger) { a.log = l }

// Load reads and validates the snapshot. The second return is false when
// there is nothing usable and the caller should start a fresh egg.
func (a *Adapter) Load() (creature.State, bool) {
	raw, ok, err := a.getItem()
	if err != nil {
		a.log.Warn("snapshot load failed, starting fresh", "error", err)
		return creature.State{}, false
	}
	if !ok {
		return creature.State{}, false
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		a.log.Warn("snapshot is not valid JSON, starting fresh", "error", err)
		return creature.State{}, false
	}
	if err := a.schema.Validate(generic); err != nil {
		a.log.Warn("snapshot failed schema validation, starting fresh", "error", err)
		return creature.State{}, false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		a.log.Warn("snapshot decode failed, starting fresh", "error", err)
		return creature.State{}, false
	}
	if env.Version != snapshotVersion {
		a.log.Warn("snapshot version mismatch, starting fresh", "version", env.Version)
		return creature.State{}, false
	}
	return env.State, true
}

// Save schedules a checkpoint. Repeated saves inside the debounce window
// collapse into one write of the latest snapshot. Never blocks on the
// backend.
func (a *Adapter) Save(s creature.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &s
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.flushPending)
	}
}

func (a *Adapter) flushPending() {
	a.mu.Lock()
	s := a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()
	if s != nil {
		a.write(*s)
	}
}

// Flush writes any pending snapshot immediately. Called on shutdown.
func (a *Adapter) Flush() {
	a.mu.Lock()
	s := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	if s != nil {
		a.write(*s)
	}
}

// FlushState writes the given snapshot immediately, superseding anything
// pending.
func (a *Adapter) FlushState(s creature.State) {
	a.mu.Lock()
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.write(s)
}

func (a *Adapter) write(s creature.State) {
	defer a.recoverBackend("save")

	env := Envelope{Version: snapshotVersion, SavedAt: time.Now(), State: s}
	data, err := json.Marshal(env)
	if err != nil {
		a.log.Error("snapshot marshal failed", "error", err)
		return
	}
	if err := a.backend.SetItem(StateKey, string(data)); err != nil {
		a.log.Error("snapshot save failed", "error", err)
	}
}

// Remove deletes the persisted snapshot (explicit storage reset).
func (a *Adapter) Remove() error {
	defer a.recoverBackend("remove")
	return a.backend.RemoveItem(StateKey)
}

func (a *Adapter) getItem() (raw string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage backend panicked: %v", r)
		}
	}()
	return a.backend.GetItem(StateKey)
}

func (a *Adapter) recoverBackend(op string) {
	if r := recover(); r != nil {
		a.log.Error("storage backend panicked", "op", op, "panic", r)
	}
}
