package eval

import (
	"math"
	"strings"
	"testing"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

func harness(t *testing.T) (*EvalHarness, *state.Codec) {
	t.Helper()
	c, err := state.New(state.DefaultConfig())
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	return NewEvalHarness(c, DefaultEvalConfig()), c
}

func metric(r EvalResult, name string) EvalMetric {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	return EvalMetric{Name: "missing"}
}

func TestRun_EncodedVectorPasses(t *testing.T) {
	h, c := harness(t)
	d := scene.Description{Context: scene.InGame, Elements: []scene.Element{
		{Label: scene.Button, BBox: [4]float64{0.1, 0.1, 0.1, 0.1}, Confidence: 0.4},
		{Label: scene.Minimap, BBox: [4]float64{0.7, 0.7, 0.3, 0.3}, Confidence: 0.9},
	}}
	v, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := h.Run(v)
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Reason)
	}
	if r.Reason != "all checks passed" {
		t.Errorf("reason = %q", r.Reason)
	}
	if m := metric(r, "segment_elements_norm"); m.Name == "missing" || m.Value == 0 {
		t.Errorf("segment norm metric = %+v", m)
	}
}

func TestRun_ContractFailure(t *testing.T) {
	h, _ := harness(t)
	v := make(state.Vector, 256)
	v[3] = float32(math.NaN())
	r := h.Run(v)
	if r.Passed || len(r.Metrics) != 1 || !strings.Contains(r.Reason, "NaN") {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestRun_StructuralFailures(t *testing.T) {
	h, _ := harness(t)
	v := make(state.Vector, 256)
	v[0], v[1] = 1, 1 // two active phases
	v[14+3] = 0.2     // slot 0 confidence
	v[19+3] = 0.8     // slot 1 higher
	v[34+3] = 0.1     // slot 4 after empty slots 2 and 3
	v[20] = 1.5       // drift
	r := h.Run(v)
	if r.Passed {
		t.Fatal("expected failure")
	}
	for _, name := range []string{"active_phases", "element_order", "element_packing", "out_of_range"} {
		if metric(r, name).Pass {
			t.Errorf("%s should fail", name)
		}
	}
	if !strings.Contains(r.Reason, "4 checks") {
		t.Errorf("reason = %q", r.Reason)
	}
}
