package replay

import "errors"

// #region errors
var (
	// ErrShapeMismatch rejects an experience whose state widths disagree
	// with each other or with the store's declared width.
	ErrShapeMismatch = errors.New("experience shape mismatch")
	// ErrInsufficientData rejects a sample larger than the occupied count.
	ErrInsufficientData = errors.New("insufficient data for batch")
	// ErrInvalidBatchSize rejects a non-positive batch size.
	ErrInvalidBatchSize = errors.New("invalid batch size")
	// ErrStrategyMismatch rejects a snapshot whose layout does not match the store.
	ErrStrategyMismatch = errors.New("snapshot does not match store layout")
)
// #endregion errors

// #region experience
// Experience is one (s, a, r, s', done) transition.
type Experience struct {
	State     []float32 `json:"state"`
	Action    int32     `json:"action"`
	Reward    float32   `json:"reward"`
	NextState []float32 `json:"next_state"`
	Done      bool      `json:"done"`
}

func (e Experience) clone() Experience {
	e.State = append([]float32(nil), e.State...)
	e.NextState = append([]float32(nil), e.NextState...)
	return e
}
// #endregion experience

// #region batch
// Batch holds sampled experiences as parallel slices. Indices are the
// logical positions sampled, 0 being the oldest retained experience.
type Batch struct {
	States     [][]float32
	Actions    []int32
	Rewards    []float32
	NextStates [][]float32
	Dones      []bool
	Indices    []int
}

func newBatch(k int) Batch {
	return Batch{
		States:     make([][]float32, 0, k),
		Actions:    make([]int32, 0, k),
		Rewards:    make([]float32, 0, k),
		NextStates: make([][]float32, 0, k),
		Dones:      make([]bool, 0, k),
		Indices:    make([]int, 0, k),
	}
}

func (b *Batch) append(idx int, e Experience) {
	b.States = append(b.States, e.State)
	b.Actions = append(b.Actions, e.Action)
	b.Rewards = append(b.Rewards, e.Reward)
	b.NextStates = append(b.NextStates, e.NextState)
	b.Dones = append(b.Dones, e.Done)
	b.Indices = append(b.Indices, idx)
}

// Len returns the number of experiences in the batch.
func (b Batch) Len() int { return len(b.Actions) }

// Experience returns the i-th sampled experience.
func (b Batch) Experience(i int) Experience {
	return Experience{
		State:     b.States[i],
		Action:    b.Actions[i],
		Reward:    b.Rewards[i],
		NextState: b.NextStates[i],
		Done:      b.Dones[i],
	}
}
// #endregion batch

// #region stats
// Stats is a point-in-time view of a store.
type Stats struct {
	Name         string  `json:"name"`
	Capacity     int     `json:"capacity"`
	Size         int     `json:"size"`
	Position     int64   `json:"position"`
	TotalAdded   int64   `json:"total_added"`
	TotalSampled int64   `json:"total_sampled"`
	Utilization  float64 `json:"utilization"`
	Dense        bool    `json:"dense"`
	StateWidth   int     `json:"state_width"`
}
// #endregion stats
