package replay

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
)

// #region snapshot-keys
const (
	arrStates       = "states"
	arrActions      = "actions"
	arrRewards      = "rewards"
	arrNextStates   = "next_states"
	arrDones        = "dones"
	arrStateLengths = "state_lengths"
)
// #endregion snapshot-keys

// #region save
// Save writes the store to a container at path. The lock is held for the
// whole write so the snapshot is consistent. Rows are written in slot
// order so Load restores the same cursor. It returns the number of
// experiences written.
func (s *Store) Save(path string, opts ...container.Option) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	n := s.lenLocked()
	w := s.data.width()
	actions := make([]int32, n)
	rewards := make([]float32, n)
	dones := make([]float32, n)
	var states, next []float32
	var lengths []int32
	if w > 0 {
		states = make([]float32, 0, n*w)
		next = make([]float32, 0, n*w)
	} else {
		lengths = make([]int32, n)
	}
	for slot := 0; slot < n; slot++ {
		e := s.data.get(slot)
		states = append(states, e.State...)
		next = append(next, e.NextState...)
		actions[slot] = e.Action
		rewards[slot] = e.Reward
		if e.Done {
			dones[slot] = 1
		}
		if w == 0 {
			lengths[slot] = int32(len(e.State))
		}
	}

	arrays := map[string]container.Array{
		arrActions: container.FromInt32(actions),
		arrRewards: container.FromFloat32(rewards),
		arrDones:   container.FromFloat32(dones),
	}
	if w > 0 {
		arrays[arrStates] = container.FromFloat32(states, n, w)
		arrays[arrNextStates] = container.FromFloat32(next, n, w)
	} else {
		arrays[arrStates] = container.FromFloat32(states)
		arrays[arrNextStates] = container.FromFloat32(next)
		arrays[arrStateLengths] = container.FromInt32(lengths)
	}

	id := uuid.New().String()
	meta := container.Metadata{
		"capacity":      s.capacity,
		"position":      s.position,
		"cursor":        s.position % int64(s.capacity),
		"size":          n,
		"strategy":      s.data.name(),
		"state_width":   w,
		"total_added":   s.added,
		"total_sampled": s.sampled,
		"snapshot_id":   id,
		"saved_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := container.SaveArrays(path, arrays, meta, opts...); err != nil {
		return 0, fmt.Errorf("save replay snapshot: %w", err)
	}
	persistSeconds.WithLabelValues(s.name, "save").Observe(time.Since(start).Seconds())
	s.logger.Info("replay snapshot saved", "path", path, "size", n, "snapshot_id", id)
	return n, nil
}
// #endregion save

// #region load
// snapshot is a decoded container ready to be installed into a store.
type snapshot struct {
	capacity int
	width    int
	strategy string
	position int64
	added    int64
	sampled  int64
	id       string
	rows     []Experience
}

// Load replaces the store contents with the snapshot at path. The
// snapshot must have the same capacity and layout. On any error the
// store is left unchanged.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}
	if snap.capacity != s.capacity || snap.strategy != s.data.name() || snap.width != s.data.width() {
		return fmt.Errorf("%w: snapshot %s capacity %d width %d, store %s capacity %d width %d",
			ErrStrategyMismatch, snap.strategy, snap.capacity, snap.width, s.data.name(), s.capacity, s.data.width())
	}
	s.installLocked(snap)
	persistSeconds.WithLabelValues(s.name, "load").Observe(time.Since(start).Seconds())
	s.logger.Info("replay snapshot loaded", "path", path, "size", len(snap.rows), "snapshot_id", snap.id)
	return nil
}

// Open builds a new store from the snapshot at path, taking capacity and
// layout from the snapshot.
func Open(path string, opts ...Option) (*Store, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithStateWidth(snap.width))
	s, err := New(snap.capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("open replay snapshot: %w", err)
	}
	s.mu.Lock()
	s.installLocked(snap)
	s.mu.Unlock()
	s.logger.Info("replay snapshot opened", "path", path, "size", len(snap.rows), "snapshot_id", snap.id)
	return s, nil
}

func (s *Store) installLocked(snap *snapshot) {
	s.data.reset()
	for slot, e := range snap.rows {
		s.data.put(slot, e)
	}
	s.position = snap.position
	s.added = snap.added
	s.sampled = snap.sampled
	sizeGauge.WithLabelValues(s.name).Set(float64(s.lenLocked()))
}

func readSnapshot(path string) (*snapshot, error) {
	arrays, meta, err := container.LoadArrays(path)
	if err != nil {
		return nil, fmt.Errorf("load replay snapshot: %w", err)
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("load replay snapshot %s: %w: %s", path, container.ErrFormat, fmt.Sprintf(format, args...))
	}

	snap := &snapshot{}
	capacity, ok1 := meta.Int("capacity")
	width, ok2 := meta.Int("state_width")
	snap.position, _ = meta.Int("position")
	snap.added, _ = meta.Int("total_added")
	snap.sampled, _ = meta.Int("total_sampled")
	snap.strategy, _ = meta.String("strategy")
	snap.id, _ = meta.String("snapshot_id")
	if !ok1 || !ok2 || capacity <= 0 || width < 0 || snap.position < 0 {
		return nil, bad("missing or invalid capacity/state_width/position")
	}
	snap.capacity, snap.width = int(capacity), int(width)
	if (snap.width > 0) != (snap.strategy == strategyDense) {
		return nil, bad("strategy %q with state_width %d", snap.strategy, snap.width)
	}

	get := func(name string) ([]float32, error) {
		a, ok := arrays[name]
		if !ok {
			return nil, bad("missing array %q", name)
		}
		v, err := a.Float32s()
		if err != nil {
			return nil, bad("array %q: %v", name, err)
		}
		return v, nil
	}
	actionsArr, ok := arrays[arrActions]
	if !ok {
		return nil, bad("missing array %q", arrActions)
	}
	actions, err := actionsArr.Int32s()
	if err != nil {
		return nil, bad("array %q: %v", arrActions, err)
	}
	rewards, err := get(arrRewards)
	if err != nil {
		return nil, err
	}
	dones, err := get(arrDones)
	if err != nil {
		return nil, err
	}
	states, err := get(arrStates)
	if err != nil {
		return nil, err
	}
	next, err := get(arrNextStates)
	if err != nil {
		return nil, err
	}

	n := len(actions)
	want := snap.position
	if want > capacity {
		want = capacity
	}
	if int64(n) != want || len(rewards) != n || len(dones) != n {
		return nil, bad("row count %d does not match position %d and capacity %d", n, snap.position, capacity)
	}

	lengths := make([]int, n)
	if snap.width > 0 {
		for i := range lengths {
			lengths[i] = snap.width
		}
	} else {
		a, ok := arrays[arrStateLengths]
		if !ok {
			return nil, bad("missing array %q", arrStateLengths)
		}
		raw, err := a.Int32s()
		if err != nil || len(raw) != n {
			return nil, bad("array %q does not hold %d int32 lengths", arrStateLengths, n)
		}
		for i, l := range raw {
			if l < 0 {
				return nil, bad("negative state length at row %d", i)
			}
			lengths[i] = int(l)
		}
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	if len(states) != total || len(next) != total {
		return nil, bad("state payload %d/%d, want %d", len(states), len(next), total)
	}

	snap.rows = make([]Experience, n)
	off := 0
	for i := range snap.rows {
		l := lengths[i]
		snap.rows[i] = Experience{
			State:     states[off : off+l],
			Action:    actions[i],
			Reward:    rewards[i],
			NextState: next[off : off+l],
			Done:      dones[i] != 0,
		}
		off += l
	}
	return snap, nil
}
// #endregion load
