package hatchling

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/softclaw/hatchling/internal/config"
	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/discovery"
	"github.com/softclaw/hatchling/internal/habitat"
	"github.com/softclaw/hatchling/internal/sim"
	"github.com/softclaw/hatchling/internal/storage"
)

func newDen(t *testing.T) (den string, cfg config.Care) {
	t.Helper()
	den = filepath.Join(t.TempDir(), discovery.DenDirName)
	if err := os.MkdirAll(den, 0755); err != nil {
		t.Fatalf("Failed to create den: %v", err)
	}
	cfg = config.Default("TestEgg")
	if err := config.Save(cfg, discovery.CarePath(den)); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	return den, cfg
}

func TestEggToHatchlingLifecycle(t *testing.T) {
	den, cfg := newDen(t)

	// Reload config the way a command invocation would.
	cfg, err := config.Load(discovery.CarePath(den), "fallback")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Name != "TestEgg" {
		t.Errorf("Expected name 'TestEgg', got '%s'", cfg.Name)
	}

	backend, err := storage.NewFileBackend(den, cfg.Compress)
	if err != nil {
		t.Fatalf("Failed to open backend: %v", err)
	}
	adapter := storage.NewAdapter(backend, 0)

	// First run: nothing saved yet, a fresh egg arrives.
	state, restored := adapter.Load()
	if restored {
		t.Fatal("Expected no saved state on first run")
	}
	state = creature.NewEgg(cfg.Name, time.Now())
	if !state.EggPhase {
		t.Error("Expected new creature to start as an egg")
	}
	if state.Warmth != 100 || state.Stability != 100 {
		t.Errorf("Expected calm warm egg, got warmth=%v stability=%v", state.Warmth, state.Stability)
	}
	if state.Bond != 0 {
		t.Errorf("Expected zero bond, got %v", state.Bond)
	}

	store := habitat.New(state, cfg, habitat.SystemClock())
	store.SetSaver(adapter.Save)

	// Care for the egg until it hatches.
	if !store.TalkToEgg() {
		t.Fatal("Talking to the egg should apply")
	}
	for store.Snapshot().Bond < 100 {
		if !store.SingToEgg() {
			t.Fatal("Singing to a warm egg should apply")
		}
	}
	if !store.CheckHatch() {
		t.Fatal("Full bond should hatch the egg")
	}

	snap := store.Snapshot()
	if snap.EggPhase {
		t.Error("Expected egg phase to end after hatching")
	}
	if snap.Hunger != 100 || snap.Thirst != 100 || snap.Energy != 100 {
		t.Errorf("Expected full stats after hatching, got hunger=%v thirst=%v energy=%v",
			snap.Hunger, snap.Thirst, snap.Energy)
	}
	if snap.Mood != creature.MoodHappy {
		t.Errorf("Expected happy mood after hatching, got %s", snap.Mood)
	}

	// Persist and reload, verifying the snapshot round-trips.
	adapter.FlushState(snap)
	reloaded, restored := adapter.Load()
	if !restored {
		t.Fatal("Expected saved state to load")
	}
	if reloaded.EggPhase {
		t.Error("Reloaded creature regressed to egg phase")
	}
	if reloaded.Bond != snap.Bond {
		t.Errorf("Bond not persisted: expected %v, got %v", snap.Bond, reloaded.Bond)
	}
}

func TestOfflineDecayAcrossRestarts(t *testing.T) {
	den, cfg := newDen(t)

	backend, err := storage.NewFileBackend(den, false)
	if err != nil {
		t.Fatalf("Failed to open backend: %v", err)
	}
	adapter := storage.NewAdapter(backend, 0)

	// Save a hatched creature whose snapshot is two hours old.
	state := creature.NewEgg(cfg.Name, time.Now())
	state.EggPhase = false
	state.Hunger, state.Thirst, state.Happiness, state.Energy = 100, 100, 100, 100
	state.LastSavedTime = time.Now().Add(-2 * time.Hour)
	adapter.FlushState(state)

	// Second process: load and reconcile the gap.
	loaded, restored := adapter.Load()
	if !restored {
		t.Fatal("Expected saved state to load")
	}
	store := habitat.New(loaded, cfg, habitat.SystemClock())
	if !store.CatchUp() {
		t.Fatal("Expected catch-up to apply for a two hour gap")
	}

	snap := store.Snapshot()
	if snap.Hunger >= 100 {
		t.Errorf("Expected hunger to decay offline, got %v", snap.Hunger)
	}
	if snap.Thirst >= 100 {
		t.Errorf("Expected thirst to decay offline, got %v", snap.Thirst)
	}
	// Roughly two hours of decay at default rates.
	wantHunger := 100 - 2*sim.DefaultRates().Hunger
	if snap.Hunger < wantHunger-1 || snap.Hunger > wantHunger+1 {
		t.Errorf("Expected hunger near %v after two hours, got %v", wantHunger, snap.Hunger)
	}

	// The anchor moved forward; an immediate second catch-up is a no-op.
	if store.CatchUp() {
		t.Error("Immediate second catch-up should be skipped")
	}
}

func TestDenDiscoveryWalkUp(t *testing.T) {
	root := t.TempDir()
	den := filepath.Join(root, discovery.DenDirName)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(den, 0755); err != nil {
		t.Fatalf("Failed to create den: %v", err)
	}
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}

	found, ok, err := discovery.FindDen(nested)
	if err != nil {
		t.Fatalf("FindDen failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected to find den from nested directory")
	}
	if found != den {
		t.Errorf("Expected den %s, got %s", den, found)
	}

	_, ok, err = discovery.FindDen(t.TempDir())
	if err != nil {
		t.Fatalf("FindDen failed: %v", err)
	}
	if ok {
		t.Error("Expected no den in an unrelated directory")
	}
}

func TestCooldownsPersistAcrossReload(t *testing.T) {
	den, cfg := newDen(t)

	backend, err := storage.NewFileBackend(den, false)
	if err != nil {
		t.Fatalf("Failed to open backend: %v", err)
	}
	adapter := storage.NewAdapter(backend, 0)

	state := creature.NewEgg(cfg.Name, time.Now())
	state.EggPhase = false
	store := habitat.New(state, cfg, habitat.SystemClock())

	if !store.Feed() {
		t.Fatal("First feed should apply")
	}
	adapter.FlushState(store.Snapshot())

	// A fresh process must still honor the running cooldown.
	loaded, restored := adapter.Load()
	if !restored {
		t.Fatal("Expected saved state to load")
	}
	store2 := habitat.New(loaded, cfg, habitat.SystemClock())
	if store2.Feed() {
		t.Error("Feed should still be on cooldown after reload")
	}
}
