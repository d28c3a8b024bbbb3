package state

import (
	"fmt"
	"math"
)

// #region validate
// Validate enforces the vector contract: length equals Size() and every
// value is finite. Values outside [-ε, 1+ε] are logged and counted but
// do not fail.
func (c *Codec) Validate(v Vector) error {
	if len(v) != c.cfg.VectorSize {
		validationFailures.Inc()
		return fmt.Errorf("%w: length %d, want %d", ErrValidation, len(v), c.cfg.VectorSize)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) {
			validationFailures.Inc()
			return fmt.Errorf("%w: NaN at index %d", ErrValidation, i)
		}
		if math.IsInf(f, 0) {
			validationFailures.Inc()
			return fmt.Errorf("%w: Inf at index %d", ErrValidation, i)
		}
	}
	c.warnRange(v)
	return nil
}

// OutOfRange returns the indices of values outside [-ε, 1+ε].
func (c *Codec) OutOfRange(v Vector) []int {
	eps := c.cfg.RangeTolerance
	var out []int
	for i, x := range v {
		f := float64(x)
		if f < -eps || f > 1+eps {
			out = append(out, i)
		}
	}
	return out
}

func (c *Codec) warnRange(v Vector) {
	idx := c.OutOfRange(v)
	if len(idx) == 0 {
		return
	}
	rangeWarnings.Add(float64(len(idx)))
	c.logger.Warn("vector values outside tolerated range",
		"count", len(idx),
		"first_index", idx[0],
		"first_value", v[idx[0]],
		"tolerance", c.cfg.RangeTolerance,
	)
}
// #endregion validate
