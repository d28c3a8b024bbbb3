package state

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

// #region encode
// Encode maps d to a vector of length Size(). Sections are computed
// independently; a section that cannot be encoded is zero-filled and
// reported in a non-nil *EncodeError while the returned vector stays
// usable. The returned vector is never nil.
func (c *Codec) Encode(d scene.Description) (Vector, error) {
	encodesTotal.Inc()
	vec := make(Vector, c.cfg.VectorSize)

	var failed []*SectionError
	run := func(name string, rng [2]int, fill func(Vector) error) {
		dst := vec[rng[0]:rng[1]]
		err := fillSection(dst, fill)
		if err == nil {
			return
		}
		clear(dst)
		failed = append(failed, &SectionError{Section: name, Err: err})
		sectionFailures.WithLabelValues(name).Inc()
		c.logger.Warn("encode section degraded",
			"section", name,
			"reason", err.Error(),
			"timestamp", d.Timestamp,
		)
	}

	run(SectionPhase, c.sections.Phase, func(dst Vector) error { return c.encodePhase(d, dst) })
	run(SectionResources, c.sections.Resources, func(dst Vector) error { return c.encodeResources(d, dst) })
	run(SectionConfidence, c.sections.Confidence, func(dst Vector) error { return encodeConfidence(d, dst) })
	run(SectionElements, c.sections.Elements, func(dst Vector) error { return c.encodeElements(d, dst) })

	c.warnRange(vec)

	if len(failed) > 0 {
		return vec, &EncodeError{Sections: failed}
	}
	return vec, nil
}

// fillSection runs fill and checks every slot it wrote. A panic inside
// fill is converted to an error so one section cannot take down the
// whole encode.
func fillSection(dst Vector, fill func(Vector) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := fill(dst); err != nil {
		return err
	}
	for i, v := range dst {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
			return fmt.Errorf("slot %d holds %v", i, v)
		}
	}
	return nil
}
// #endregion encode

// #region phase
func (c *Codec) encodePhase(d scene.Description, dst Vector) error {
	if !d.Context.Valid() {
		return fmt.Errorf("%w: %d", scene.ErrUnknownContext, int(d.Context))
	}
	if i, ok := c.phaseIdx[d.Context]; ok {
		dst[i] = 1
	}
	return nil
}
// #endregion phase

// #region resources
func (c *Codec) encodeResources(d scene.Description, dst Vector) error {
	for i, r := range c.ExtractResources(d) {
		dst[i] = r.Normalized
	}
	return nil
}

var readingPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseReading returns the first run of digits in text, with at most
// one decimal part. ok is false when text holds no digits.
func parseReading(text string) (value float64, ok bool) {
	m := readingPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.MaxFloat64, true
	}
	return v, true
}

// ExtractResources routes ResourceCounter elements to resource slots.
// A counter whose "resource" attribute names a declared resource goes to
// that slot; the rest fill the remaining slots in declared order, taking
// counters in insertion order. Extra counters are dropped and the first
// counter to claim a slot keeps it.
func (c *Codec) ExtractResources(d scene.Description) []ResourceReading {
	out := make([]ResourceReading, len(c.cfg.Resources))
	taken := make([]bool, len(out))
	for i, spec := range c.cfg.Resources {
		out[i].Name = spec.Name
	}

	var unnamed []scene.Element
	for _, e := range d.Elements {
		if e.Label != scene.ResourceCounter {
			continue
		}
		i, ok := c.resIdx[e.Attr("resource")]
		if !ok {
			unnamed = append(unnamed, e)
			continue
		}
		if !taken[i] {
			c.fillReading(&out[i], e)
			taken[i] = true
		}
	}

	next := 0
	for _, e := range unnamed {
		for next < len(taken) && taken[next] {
			next++
		}
		if next == len(taken) {
			break
		}
		c.fillReading(&out[next], e)
		taken[next] = true
	}
	return out
}

func (c *Codec) fillReading(r *ResourceReading, e scene.Element) {
	raw, ok := parseReading(e.SemanticValue)
	r.Raw = raw
	r.Valid = ok
	r.Source = e.SemanticValue
	r.Normalized = float32(clampUnit(raw / c.cfg.Resources[c.resIdx[r.Name]].Max))
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
// #endregion resources

// #region confidence
func encodeConfidence(d scene.Description, dst Vector) error {
	if len(d.Elements) == 0 {
		return nil
	}
	var sum float64
	for i, e := range d.Elements {
		if math.IsNaN(e.Confidence) || e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("%w: element %d confidence %v", scene.ErrInvalidElement, i, e.Confidence)
		}
		sum += e.Confidence
	}
	dst[0] = float32(sum / float64(len(d.Elements)))
	return nil
}
// #endregion confidence

// #region elements
func (c *Codec) encodeElements(d scene.Description, dst Vector) error {
	for i, e := range d.Elements {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	sorted := d.SortedByConfidence()
	if len(sorted) > c.cfg.MaxElements {
		sorted = sorted[:c.cfg.MaxElements]
	}
	for k, e := range sorted {
		// a box running past the screen edge can put its center above 1
		cx, cy := e.Center()
		off := k * ElementWidth
		dst[off] = float32(int(e.Label)) / float32(scene.NumLabels)
		dst[off+1] = float32(clampUnit(cx))
		dst[off+2] = float32(clampUnit(cy))
		dst[off+3] = float32(e.Confidence)
		if e.Interactive() {
			dst[off+4] = 1
		}
	}
	return nil
}
// #endregion elements
