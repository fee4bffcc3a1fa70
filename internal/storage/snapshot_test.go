package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/softclaw/hatchling/internal/creature"
)

func TestSnapshotRoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter(backend, 0)

	s := creature.NewEgg("Pip", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.Bond = 42.5
	s.IsWobbling = true
	s.Particles = []creature.Particle{{ID: "01ABC", Type: creature.ParticleSpeech, X: 3.5, Y: -12}}
	s.InteractionEvents = []creature.InteractionEvent{{ID: "01DEF", Type: "feed", Text: "Yum!"}}
	s.Tricks = map[string]creature.Trick{"sit": {Learned: true, Progress: 100}}
	s.Cooldowns = map[string]time.Time{"feed": time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)}

	a.FlushState(s)

	loaded, ok := a.Load()
	if !ok {
		t.Fatal("expected snapshot to load")
	}

	want, _ := json.Marshal(s)
	got, _ := json.Marshal(loaded)
	if string(want) != string(got) {
		t.Errorf("round-trip mismatch:\nsaved:  %s\nloaded: %s", want, got)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	a := NewAdapter(NewMemoryBackend(), 0)
	if _, ok := a.Load(); ok {
		t.Error("expected no snapshot from an empty backend")
	}
}

func TestLoadMalformedSnapshot(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "{not json"},
		{"wrong shape", `{"hello": "world"}`},
		{"missing state", `{"version": 1}`},
		{"stat out of range", `{"version": 1, "state": {"egg_phase": true, "last_saved_time": "2026-03-01T00:00:00Z", "warmth": 180}}`},
		{"bad particle", `{"version": 1, "state": {"egg_phase": true, "last_saved_time": "2026-03-01T00:00:00Z", "particles": [{"type": "speech"}]}}`},
		{"future version", `{"version": 99, "state": {"egg_phase": true, "last_saved_time": "2026-03-01T00:00:00Z"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewMemoryBackend()
			backend.SetItem(StateKey, tt.raw)
			a := NewAdapter(backend, 0)
			if _, ok := a.Load(); ok {
				t.Errorf("malformed snapshot %q loaded successfully", tt.name)
			}
		})
	}
}

type panicBackend struct{}

func (panicBackend) GetItem(string) (string, bool, error) { panic("backend exploded") }
func (panicBackend) SetItem(string, string) error         { panic("backend exploded") }
func (panicBackend) RemoveItem(string) error              { panic("backend exploded") }

func TestBackendPanicsStopAtAdapter(t *testing.T) {
	a := NewAdapter(panicBackend{}, 0)

	if _, ok := a.Load(); ok {
		t.Error("panicking backend produced a snapshot")
	}
	// Must not propagate.
	a.FlushState(creature.NewEgg("Pip", time.Now()))
	if err := a.Remove(); err != nil {
		t.Errorf("remove surfaced error past the boundary: %v", err)
	}
}

func TestSaveDebounceCollapsesWrites(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter(backend, 20*time.Millisecond)

	first := creature.NewEgg("Pip", time.Now())
	second := first
	second.Bond = 50

	a.Save(first)
	a.Save(second)

	if _, ok, _ := backend.GetItem(StateKey); ok {
		t.Error("write landed before the debounce window elapsed")
	}

	a.Flush()
	loaded, ok := a.Load()
	if !ok {
		t.Fatal("expected snapshot after flush")
	}
	if loaded.Bond != 50 {
		t.Errorf("bond = %v, want the latest snapshot (50)", loaded.Bond)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			f, err := NewFileBackend(dir, compress)
			if err != nil {
				t.Fatalf("failed to create backend: %v", err)
			}

			if _, ok, _ := f.GetItem("k"); ok {
				t.Fatal("unexpected value in fresh dir")
			}
			if err := f.SetItem("k", `{"hello":"world"}`); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			v, ok, err := f.GetItem("k")
			if err != nil || !ok {
				t.Fatalf("get failed: ok=%v err=%v", ok, err)
			}
			if v != `{"hello":"world"}` {
				t.Errorf("value = %q", v)
			}
			if err := f.RemoveItem("k"); err != nil {
				t.Fatalf("remove failed: %v", err)
			}
			if _, ok, _ := f.GetItem("k"); ok {
				t.Error("value survived removal")
			}
		})
	}
}

func TestFileBackendReadsAcrossCompressionModes(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFileBackend(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := plain.SetItem("k", "old-save"); err != nil {
		t.Fatal(err)
	}

	// Flipping compression on must still find the old plain file.
	compressed, err := NewFileBackend(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := compressed.GetItem("k")
	if err != nil || !ok || v != "old-save" {
		t.Fatalf("cross-mode read: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	path := t.TempDir() + "/state.db"
	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer b.Close()

	if err := b.SetItem("k", "v1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := b.SetItem("k", "v2"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	b.Barrier()

	v, ok, err := b.GetItem("k")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if v != "v2" {
		t.Errorf("value = %q, want latest write", v)
	}

	if err := b.RemoveItem("k"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	b.Barrier()
	if _, ok, _ := b.GetItem("k"); ok {
		t.Error("value survived removal")
	}
}

func TestSQLiteBackendClosedWrites(t *testing.T) {
	b, err := OpenSQLite(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := b.SetItem("k", "v"); err == nil {
		t.Error("expected error writing to a closed backend")
	}
}

func TestJournalWritesLines(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, "events")

	if err := j.Write(map[string]string{"type": "feed"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := j.Write(map[string]string{"type": "play"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// One rotated file for the current hour should exist.
	entries, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("journal files = %d, want 1", len(entries))
	}
}
