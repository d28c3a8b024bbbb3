package replay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

// #region types

// Collector turns recorded episodes into stored transitions.
type Collector struct {
	codec  *state.Codec
	store  *Store
	frames *state.FrameStack
	logger *slog.Logger
}

// StepResult captures what happened to one recorded step.
type StepResult struct {
	Step     int
	Action   string // "added" | "terminal" | "dropped"
	Degraded []string
	Err      error
}

// CollectSummary provides aggregate stats from one collection run.
type CollectSummary struct {
	Steps      int
	Added      int
	Episodes   int
	Dropped    int
	Degraded   int
	Results    []StepResult
	StoreStats Stats
}

// #endregion types

// #region constructor

// NewCollector builds a collector. A history depth above 1 stacks that
// many consecutive vectors per observation, in which case the store
// width must be depth times the codec size.
func NewCollector(codec *state.Codec, store *Store, history int, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Collector{codec: codec, store: store, logger: logger}
	width := codec.Size()
	if history > 1 {
		c.frames = state.NewFrameStack(codec.Size(), history)
		width = c.frames.Width()
	}
	if w := store.StateWidth(); w != 0 && w != width {
		return nil, fmt.Errorf("%w: store width %d, observations are %d wide", ErrShapeMismatch, w, width)
	}
	return c, nil
}

// #endregion constructor

// #region collect

// Collect encodes each step and stores (s, a, r, s', done) transitions.
// The successor of a step is the next step's observation; a done step
// gets a zero successor and starts a new episode. A trailing step that
// is not done has no successor and is dropped. Degraded encodes are
// stored and counted.
func (c *Collector) Collect(ep *Episode) (CollectSummary, error) {
	sum := CollectSummary{Steps: len(ep.Steps)}

	obs := make([]state.Vector, len(ep.Steps))
	degraded := make([][]string, len(ep.Steps))
	prevDone := true
	for i, step := range ep.Steps {
		if prevDone {
			c.reset()
			sum.Episodes++
		}
		v, err := c.codec.Encode(step.Scene)
		if err != nil {
			var ee *state.EncodeError
			if !errors.As(err, &ee) {
				return sum, fmt.Errorf("encode step %d: %w", i, err)
			}
			degraded[i] = ee.Failed()
			sum.Degraded++
		}
		if obs[i], err = c.observe(v); err != nil {
			return sum, fmt.Errorf("stack step %d: %w", i, err)
		}
		prevDone = step.Done
	}

	zero := make([]float32, c.width())
	for i, step := range ep.Steps {
		res := StepResult{Step: i, Degraded: degraded[i]}
		var next []float32
		switch {
		case step.Done:
			next = zero
			res.Action = "terminal"
		case i+1 < len(ep.Steps):
			next = obs[i+1]
			res.Action = "added"
		default:
			res.Action = "dropped"
			sum.Dropped++
			sum.Results = append(sum.Results, res)
			continue
		}
		if err := c.store.Add(obs[i], step.Action, step.Reward, next, step.Done); err != nil {
			res.Err = err
			sum.Results = append(sum.Results, res)
			return sum, fmt.Errorf("add step %d: %w", i, err)
		}
		sum.Added++
		sum.Results = append(sum.Results, res)
	}

	sum.StoreStats = c.store.Stats()
	c.logger.Info("episode collected",
		"description", ep.Description,
		"steps", sum.Steps,
		"added", sum.Added,
		"degraded", sum.Degraded,
		"episodes", sum.Episodes,
	)
	return sum, nil
}

func (c *Collector) observe(v state.Vector) (state.Vector, error) {
	if c.frames == nil {
		return v, nil
	}
	return c.frames.Push(v)
}

func (c *Collector) reset() {
	if c.frames != nil {
		c.frames.Reset()
	}
}

func (c *Collector) width() int {
	if c.frames != nil {
		return c.frames.Width()
	}
	return c.codec.Size()
}

// #endregion collect
