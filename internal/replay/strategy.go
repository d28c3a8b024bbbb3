package replay

import "fmt"

// #region storage
// storage is the backing layout of a store. Slots are physical indices in
// [0, capacity); the store maps logical positions onto them.
type storage interface {
	check(e Experience) error
	put(slot int, e Experience)
	get(slot int) Experience
	reset()
	width() int
	name() string
}

const (
	strategyDense    = "dense"
	strategyVariable = "variable"
)
// #endregion storage

// #region dense
// denseStorage pre-allocates contiguous arrays for a fixed state width.
type denseStorage struct {
	w       int
	states  []float32
	next    []float32
	actions []int32
	rewards []float32
	dones   []bool
}

func newDenseStorage(capacity, width int) *denseStorage {
	return &denseStorage{
		w:       width,
		states:  make([]float32, capacity*width),
		next:    make([]float32, capacity*width),
		actions: make([]int32, capacity),
		rewards: make([]float32, capacity),
		dones:   make([]bool, capacity),
	}
}

func (d *denseStorage) check(e Experience) error {
	if len(e.State) != d.w || len(e.NextState) != d.w {
		return fmt.Errorf("%w: state %d, next_state %d, want %d", ErrShapeMismatch, len(e.State), len(e.NextState), d.w)
	}
	return nil
}

func (d *denseStorage) put(slot int, e Experience) {
	copy(d.states[slot*d.w:(slot+1)*d.w], e.State)
	copy(d.next[slot*d.w:(slot+1)*d.w], e.NextState)
	d.actions[slot] = e.Action
	d.rewards[slot] = e.Reward
	d.dones[slot] = e.Done
}

func (d *denseStorage) get(slot int) Experience {
	return Experience{
		State:     append([]float32(nil), d.states[slot*d.w:(slot+1)*d.w]...),
		Action:    d.actions[slot],
		Reward:    d.rewards[slot],
		NextState: append([]float32(nil), d.next[slot*d.w:(slot+1)*d.w]...),
		Done:      d.dones[slot],
	}
}

func (d *denseStorage) reset() {
	clear(d.states)
	clear(d.next)
	clear(d.actions)
	clear(d.rewards)
	clear(d.dones)
}

func (d *denseStorage) width() int   { return d.w }
func (d *denseStorage) name() string { return strategyDense }
// #endregion dense

// #region variable
// ringStorage keeps one independently sized experience per slot.
type ringStorage struct {
	slots []Experience
}

func newRingStorage(capacity int) *ringStorage {
	return &ringStorage{slots: make([]Experience, capacity)}
}

func (r *ringStorage) check(e Experience) error {
	if len(e.State) != len(e.NextState) {
		return fmt.Errorf("%w: state %d, next_state %d", ErrShapeMismatch, len(e.State), len(e.NextState))
	}
	return nil
}

func (r *ringStorage) put(slot int, e Experience) { r.slots[slot] = e.clone() }
func (r *ringStorage) get(slot int) Experience    { return r.slots[slot].clone() }
func (r *ringStorage) reset()                     { clear(r.slots) }
func (r *ringStorage) width() int                 { return 0 }
func (r *ringStorage) name() string               { return strategyVariable }
// #endregion variable
