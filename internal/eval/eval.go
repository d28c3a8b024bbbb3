package eval

import (
	"fmt"
	"math"

	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

// #region eval-harness
// EvalHarness checks the structural invariants of encoded vectors.
type EvalHarness struct {
	config EvalConfig
	codec  *state.Codec
}

// NewEvalHarness creates a harness for vectors produced by codec.
func NewEvalHarness(codec *state.Codec, config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config, codec: codec}
}

// Run checks v and returns pass/fail with metrics. Length and
// finiteness failures stop the run early since nothing else can be
// measured.
func (h *EvalHarness) Run(v state.Vector) EvalResult {
	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float32, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Structural contract
	if err := h.codec.Validate(v); err != nil {
		check("contract", 0, false, err.Error())
		return result(metrics, failReasons)
	}
	check("contract", 1, true, "")

	cfg := h.codec.Config()
	sections := h.codec.Sections()

	// 2. Range drift
	out := len(h.codec.OutOfRange(v))
	check("out_of_range", float32(out), out <= h.config.MaxOutOfRange,
		fmt.Sprintf("%d values outside [0,1]", out))

	// 3. Phase one-hot
	active := 0
	for i := sections.Phase[0]; i < sections.Phase[1]; i++ {
		if float64(v[i]) > cfg.ActivationThreshold {
			active++
		}
	}
	check("active_phases", float32(active), active <= h.config.MaxActivePhases,
		fmt.Sprintf("%d active phase slots", active))

	// 4. Elements sorted by confidence, padding only at the tail
	sorted, packed := elementOrder(v, sections.Elements[0], cfg.MaxElements)
	check("element_order", boolValue(sorted), sorted, "element confidences not in descending order")
	check("element_packing", boolValue(packed), packed, "empty element slot before an occupied one")

	// 5. Norms: informational
	norm := segNorm(v, [2]int{0, len(v)})
	metrics = append(metrics, EvalMetric{Name: "state_norm", Value: norm, Pass: norm <= h.config.MaxStateNorm})
	for _, s := range sections.Named() {
		metrics = append(metrics, EvalMetric{Name: fmt.Sprintf("segment_%s_norm", s.Name), Value: segNorm(v, s.Range), Pass: true})
	}

	return result(metrics, failReasons)
}

func result(metrics []EvalMetric, failReasons []string) EvalResult {
	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}
	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func elementOrder(v state.Vector, base, k int) (sorted, packed bool) {
	sorted, packed = true, true
	prev := float32(math.Inf(1))
	seenEmpty := false
	for i := 0; i < k; i++ {
		t := v[base+i*state.ElementWidth : base+(i+1)*state.ElementWidth]
		empty := true
		for _, x := range t {
			if x != 0 {
				empty = false
				break
			}
		}
		if empty {
			seenEmpty = true
			continue
		}
		if seenEmpty {
			packed = false
		}
		if t[3] > prev {
			sorted = false
		}
		prev = t[3]
	}
	return sorted, packed
}

// segNorm computes the L2 norm of a segment slice.
func segNorm(v state.Vector, seg [2]int) float32 {
	var sum float64
	for i := seg[0]; i < seg[1]; i++ {
		sum += float64(v[i]) * float64(v[i])
	}
	return float32(math.Sqrt(sum))
}

func boolValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
