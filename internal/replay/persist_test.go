package replay

import (
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
)

func sameExperiences(t *testing.T, a, b []Experience) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("length %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Action != b[i].Action || a[i].Reward != b[i].Reward || a[i].Done != b[i].Done {
			t.Fatalf("row %d scalar mismatch: %+v vs %+v", i, a[i], b[i])
		}
		if len(a[i].State) != len(b[i].State) || len(a[i].NextState) != len(b[i].NextState) {
			t.Fatalf("row %d width mismatch", i)
		}
		for j := range a[i].State {
			if a[i].State[j] != b[i].State[j] || a[i].NextState[j] != b[i].NextState[j] {
				t.Fatalf("row %d value mismatch at %d", i, j)
			}
		}
	}
}

func TestSaveLoad_Dense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.db")
	s := newStore(t, 5, WithStateWidth(4))
	fill(t, s, 7, 4)
	s.SampleBatch(3)
	if _, err := s.Save(path, container.WithCompression(container.CompressionAuto)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	arrays, meta, err := container.LoadArrays(path)
	if err != nil {
		t.Fatalf("LoadArrays: %v", err)
	}
	for _, name := range []string{"states", "rewards", "next_states", "dones"} {
		if arrays[name].DType != container.DTypeFloat32 {
			t.Fatalf("array %s dtype %q", name, arrays[name].DType)
		}
	}
	if arrays["actions"].DType != container.DTypeInt32 {
		t.Fatalf("array actions dtype %q", arrays["actions"].DType)
	}
	if got := arrays["states"].Shape; len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Fatalf("states shape %v", got)
	}
	if c, _ := meta.Int("capacity"); c != 5 {
		t.Fatalf("capacity meta %v", meta["capacity"])
	}
	if p, _ := meta.Int("position"); p != 7 {
		t.Fatalf("position meta %v", meta["position"])
	}

	loaded := newStore(t, 5, WithStateWidth(4))
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameExperiences(t, s.Experiences(), loaded.Experiences())
	if s.Stats().Position != loaded.Stats().Position || loaded.Stats().TotalSampled != 3 {
		t.Fatalf("stats differ: %+v vs %+v", s.Stats(), loaded.Stats())
	}

	// identical cursor: the next add evicts the same experience in both
	fill(t, s, 1, 4)
	fill(t, loaded, 1, 4)
	sameExperiences(t, s.Experiences(), loaded.Experiences())
}

func TestSaveOpen_Variable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.db")
	s := newStore(t, 4)
	widths := []int{2, 5, 1, 3, 4}
	for i, w := range widths {
		if err := s.Add(vec(w, float32(i)), int32(i), 1, vec(w, float32(i)+0.5), i == 4); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opened, err := Open(path, WithSeed(1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.StateWidth() != 0 || opened.Capacity() != 4 {
		t.Fatalf("opened layout width %d capacity %d", opened.StateWidth(), opened.Capacity())
	}
	sameExperiences(t, s.Experiences(), opened.Experiences())
}

func TestSaveLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	s := newStore(t, 3, WithStateWidth(2))
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	opened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Len() != 0 || opened.StateWidth() != 2 {
		t.Fatalf("opened empty store: %+v", opened.Stats())
	}
}

func TestLoad_Mismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.db")
	s := newStore(t, 5, WithStateWidth(4))
	fill(t, s, 2, 4)
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, other := range []*Store{
		newStore(t, 6, WithStateWidth(4)),
		newStore(t, 5, WithStateWidth(3)),
		newStore(t, 5),
	} {
		fill(t, other, 1, max(other.StateWidth(), 1))
		before := other.Experiences()
		if err := other.Load(path); !errors.Is(err, ErrStrategyMismatch) {
			t.Fatalf("expected ErrStrategyMismatch, got %v", err)
		}
		sameExperiences(t, before, other.Experiences())
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, 5, WithStateWidth(4))

	if err := s.Load(filepath.Join(dir, "missing.db")); !errors.Is(err, container.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	path := filepath.Join(dir, "buffer.db")
	fill(t, s, 3, 4)
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM arrays WHERE name = 'dones'`); err != nil {
		t.Fatalf("delete: %v", err)
	}
	db.Close()

	if _, err := Open(path); !errors.Is(err, container.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestSaveOpen_ActionsBeyondFloatPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.db")
	s := newStore(t, 4, WithStateWidth(2))
	actions := []int32{16777217, -16777217, math.MaxInt32, math.MinInt32}
	for _, a := range actions {
		if err := s.Add(vec(2, 0.5), a, 0, vec(2, 0.25), false); err != nil {
			t.Fatalf("Add %d: %v", a, err)
		}
	}
	if _, err := s.Save(path, container.WithCompression(container.CompressionAuto)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	opened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i, e := range opened.Experiences() {
		if e.Action != actions[i] {
			t.Fatalf("action %d after Save/Open = %d, want %d", i, e.Action, actions[i])
		}
	}
}

func TestOpen_RejectsFloatActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.db")
	s := newStore(t, 4, WithStateWidth(2))
	fill(t, s, 2, 2)
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`UPDATE arrays SET dtype = 'float32' WHERE name = 'actions'`); err != nil {
		t.Fatalf("update: %v", err)
	}
	db.Close()

	if _, err := Open(path); !errors.Is(err, container.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}
