package replay

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// #region store-struct
// Store is a fixed-capacity circular experience buffer. Once full, each
// Add overwrites the oldest experience. All methods are safe for
// concurrent use; each holds a single mutex for its own duration.
type Store struct {
	mu       sync.Mutex
	capacity int
	data     storage
	position int64 // writes since construction or the last Clear
	added    int64
	sampled  int64
	rng      *rand.Rand

	name   string
	logger *slog.Logger
}

type config struct {
	width  int
	seed   *uint64
	name   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*config)

// WithStateWidth declares a fixed state width, selecting dense
// pre-allocated storage. Without it the store accepts any width as long
// as state and next state agree.
func WithStateWidth(w int) Option {
	return func(c *config) { c.width = w }
}

// WithSeed makes sampling deterministic.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = &seed }
}

// WithName labels the store in logs and metrics. Stores built without a
// name get a unique "store-N" label so their gauges never share a series.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
// #endregion store-struct

// #region constructor
var unnamedStores atomic.Int64

// New creates an empty store holding at most capacity experiences.
func New(capacity int, opts ...Option) (*Store, error) {
	c := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity %d must be positive", capacity)
	}
	if c.width < 0 {
		return nil, fmt.Errorf("state width %d is negative", c.width)
	}

	if c.name == "" {
		c.name = fmt.Sprintf("store-%d", unnamedStores.Add(1))
	}

	var data storage
	if c.width > 0 {
		data = newDenseStorage(capacity, c.width)
	} else {
		data = newRingStorage(capacity)
	}

	seed := rand.Uint64()
	if c.seed != nil {
		seed = *c.seed
	}

	s := &Store{
		capacity: capacity,
		data:     data,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		name:     c.name,
		logger:   c.logger.With("store", c.name),
	}
	sizeGauge.WithLabelValues(s.name).Set(0)
	return s, nil
}
// #endregion constructor

// #region add
// Add stores a copy of one transition.
func (s *Store) Add(state []float32, action int32, reward float32, nextState []float32, done bool) error {
	return s.AddExperience(Experience{State: state, Action: action, Reward: reward, NextState: nextState, Done: done})
}

// AddExperience stores a copy of e. A shape mismatch leaves the store unchanged.
func (s *Store) AddExperience(e Experience) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.data.check(e); err != nil {
		rejectedTotal.WithLabelValues(s.name, "add", "shape_mismatch").Inc()
		return err
	}
	s.data.put(int(s.position%int64(s.capacity)), e)
	s.position++
	s.added++
	addedTotal.WithLabelValues(s.name).Inc()
	sizeGauge.WithLabelValues(s.name).Set(float64(s.lenLocked()))
	return nil
}

// AddBatch stores copies of every experience in order. If any one has a
// bad shape nothing is stored.
func (s *Store) AddBatch(batch []Experience) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range batch {
		if err := s.data.check(e); err != nil {
			rejectedTotal.WithLabelValues(s.name, "add", "shape_mismatch").Inc()
			return fmt.Errorf("experience %d: %w", i, err)
		}
	}
	for _, e := range batch {
		s.data.put(int(s.position%int64(s.capacity)), e)
		s.position++
	}
	s.added += int64(len(batch))
	addedTotal.WithLabelValues(s.name).Add(float64(len(batch)))
	sizeGauge.WithLabelValues(s.name).Set(float64(s.lenLocked()))
	return nil
}
// #endregion add

// #region sample
// SampleBatch draws k distinct experiences uniformly at random without
// replacement. It fails rather than return fewer than k.
func (s *Store) SampleBatch(k int) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 {
		rejectedTotal.WithLabelValues(s.name, "sample", "invalid_batch_size").Inc()
		return Batch{}, fmt.Errorf("%w: %d", ErrInvalidBatchSize, k)
	}
	n := s.lenLocked()
	if k > n {
		rejectedTotal.WithLabelValues(s.name, "sample", "insufficient_data").Inc()
		return Batch{}, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientData, k, n)
	}

	b := newBatch(k)
	for _, idx := range s.pickLocked(n, k) {
		b.append(idx, s.data.get(s.slotLocked(idx)))
	}
	s.sampled += int64(k)
	sampledTotal.WithLabelValues(s.name).Add(float64(k))
	return b, nil
}

// pickLocked selects k distinct values from [0, n) with Floyd's
// algorithm, then shuffles them so batch order is random too.
func (s *Store) pickLocked(n, k int) []int {
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := s.rng.IntN(j + 1)
		if _, dup := seen[t]; dup {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// slotLocked maps a logical position (0 = oldest retained) to a slot.
func (s *Store) slotLocked(idx int) int {
	if s.position <= int64(s.capacity) {
		return idx
	}
	start := int(s.position % int64(s.capacity))
	return (start + idx) % s.capacity
}
// #endregion sample

// #region queries
// Len returns the occupied count, min(total writes since Clear, capacity).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lenLocked()
}

func (s *Store) lenLocked() int {
	if s.position < int64(s.capacity) {
		return int(s.position)
	}
	return s.capacity
}

// IsReady reports whether at least min experiences are stored.
func (s *Store) IsReady(min int) bool {
	return s.Len() >= min
}

// Capacity returns the fixed capacity.
func (s *Store) Capacity() int { return s.capacity }

// StateWidth returns the declared width, or 0 for variable-shape storage.
func (s *Store) StateWidth() int { return s.data.width() }

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lenLocked()
	return Stats{
		Name:         s.name,
		Capacity:     s.capacity,
		Size:         n,
		Position:     s.position,
		TotalAdded:   s.added,
		TotalSampled: s.sampled,
		Utilization:  float64(n) / float64(s.capacity),
		Dense:        s.data.width() > 0,
		StateWidth:   s.data.width(),
	}
}

// Experiences returns copies of every stored experience, oldest first.
func (s *Store) Experiences() []Experience {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lenLocked()
	out := make([]Experience, n)
	for i := range out {
		out[i] = s.data.get(s.slotLocked(i))
	}
	return out
}
// #endregion queries

// #region clear
// Clear empties the store and returns how many experiences it dropped.
// Capacity, layout and lifetime counters are kept.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lenLocked()
	s.data.reset()
	s.position = 0
	sizeGauge.WithLabelValues(s.name).Set(0)
	s.logger.Info("replay store cleared", "dropped", n, "total_added", s.added, "total_sampled", s.sampled)
	return n
}
// #endregion clear
