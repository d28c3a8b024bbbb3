package state

import (
	"math"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

// #region decode
// Decode rebuilds a debug view of v. The mapping is lossy: text values,
// pixel boxes and elements beyond the tracked count are not recovered.
// A vector that fails Validate is rejected before any slicing.
func (c *Codec) Decode(v Vector) (*Interpretation, error) {
	if err := c.Validate(v); err != nil {
		return nil, err
	}
	return &Interpretation{
		Phase:      c.decodePhase(v),
		Resources:  c.decodeResources(v),
		Confidence: v[c.sections.Confidence[0]],
		Elements:   c.decodeElements(v),
		Summary:    summarize(v),
	}, nil
}
// #endregion decode

// #region decode-sections
func (c *Codec) decodePhase(v Vector) PhaseReading {
	raw := v[c.sections.Phase[0]:c.sections.Phase[1]]
	out := PhaseReading{Active: NoActivePhase, Raw: append([]float32(nil), raw...)}
	best := -1
	for i, x := range raw {
		if best < 0 || x > raw[best] {
			best = i
		}
	}
	if best >= 0 && float64(raw[best]) > c.cfg.ActivationThreshold {
		out.Active = c.cfg.Phases[best].String()
	}
	return out
}

func (c *Codec) decodeResources(v Vector) ResourceSummary {
	raw := v[c.sections.Resources[0]:c.sections.Resources[1]]
	out := ResourceSummary{
		Denormalized: make(map[string]float64, len(raw)),
		Raw:          append([]float32(nil), raw...),
	}
	for i, x := range raw {
		spec := c.cfg.Resources[i]
		out.Denormalized[spec.Name] = float64(x) * spec.Max
		if x != 0 {
			out.NonZero++
		}
		if x > out.Max {
			out.Max = x
		}
	}
	return out
}

// decodeElements skips all-zero slot groups as padding. A real element
// with zero label index, zero center, zero confidence and no input
// reads the same as padding and is skipped too.
func (c *Codec) decodeElements(v Vector) []DecodedElement {
	base := c.sections.Elements[0]
	out := []DecodedElement{}
	for k := 0; k < c.cfg.MaxElements; k++ {
		t := v[base+k*ElementWidth : base+(k+1)*ElementWidth]
		if allZero(t) {
			continue
		}
		idx := int(math.Round(float64(t[0]) * float64(scene.NumLabels)))
		idx = max(0, min(idx, scene.NumLabels-1))
		out = append(out, DecodedElement{
			Slot:        k,
			Label:       scene.Label(idx).String(),
			LabelValue:  t[0],
			CenterX:     t[1],
			CenterY:     t[2],
			Confidence:  t[3],
			Interactive: t[4] >= 0.5,
		})
	}
	return out
}

func allZero(t []float32) bool {
	for _, x := range t {
		if x != 0 {
			return false
		}
	}
	return true
}

func summarize(v Vector) VectorSummary {
	var s VectorSummary
	var sum, sq float64
	for i, x := range v {
		if x != 0 {
			s.NonZero++
		}
		if i == 0 || x > s.Max {
			s.Max = x
		}
		sum += float64(x)
		sq += float64(x) * float64(x)
	}
	if len(v) > 0 {
		s.Mean = sum / float64(len(v))
	}
	s.Norm = math.Sqrt(sq)
	return s
}
// #endregion decode-sections
