package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// #region element-construct
// NewElement builds an element after range-checking its fields.
func NewElement(label Label, value string, bbox [4]float64, confidence float64) (Element, error) {
	e := Element{Label: label, SemanticValue: value, BBox: bbox, Confidence: confidence}
	if err := e.Validate(); err != nil {
		return Element{}, err
	}
	return e, nil
}

// Validate checks the label, that every bbox coordinate and the
// confidence are finite and inside [0, 1].
func (e Element) Validate() error {
	if !e.Label.Valid() {
		return fmt.Errorf("%w: label %d", ErrInvalidElement, int(e.Label))
	}
	for i, v := range e.BBox {
		if !unit(v) {
			return fmt.Errorf("%w: bbox[%d]=%v outside [0,1]", ErrInvalidElement, i, v)
		}
	}
	if !unit(e.Confidence) {
		return fmt.Errorf("%w: confidence=%v outside [0,1]", ErrInvalidElement, e.Confidence)
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
// #endregion element-construct

// #region element-geometry
// Center returns the bbox center in normalised coordinates.
func (e Element) Center() (x, y float64) {
	return e.BBox[0] + e.BBox[2]/2, e.BBox[1] + e.BBox[3]/2
}

// Interactive reports whether the element accepts input.
func (e Element) Interactive() bool {
	return e.Label.Interactive()
}

// AbsoluteBBox converts the bbox to pixel coordinates for a screen of the given size.
func (e Element) AbsoluteBBox(width, height int) [4]int {
	w, h := float64(width), float64(height)
	return [4]int{
		int(e.BBox[0] * w),
		int(e.BBox[1] * h),
		int(e.BBox[2] * w),
		int(e.BBox[3] * h),
	}
}

// Attr returns a string attribute, or "" when absent or not a string.
func (e Element) Attr(key string) string {
	s, _ := e.Attributes[key].(string)
	return s
}
// #endregion element-geometry

// #region description-queries
// ByLabel returns the elements carrying label, in insertion order.
func (d *Description) ByLabel(label Label) []Element {
	var out []Element
	for _, e := range d.Elements {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// Interactive returns the elements that accept input.
func (d *Description) Interactive() []Element {
	var out []Element
	for _, e := range d.Elements {
		if e.Interactive() {
			out = append(out, e)
		}
	}
	return out
}

// HighConfidence returns elements with confidence at or above threshold.
func (d *Description) HighConfidence(threshold float64) []Element {
	var out []Element
	for _, e := range d.Elements {
		if e.Confidence >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// CountByLabel tallies elements per label.
func (d *Description) CountByLabel() map[Label]int {
	out := make(map[Label]int)
	for _, e := range d.Elements {
		out[e.Label]++
	}
	return out
}

// FindByValue returns elements whose semantic value contains text.
func (d *Description) FindByValue(text string, caseSensitive bool) []Element {
	needle := text
	if !caseSensitive {
		needle = strings.ToLower(text)
	}
	var out []Element
	for _, e := range d.Elements {
		hay := e.SemanticValue
		if !caseSensitive {
			hay = strings.ToLower(hay)
		}
		if strings.Contains(hay, needle) {
			out = append(out, e)
		}
	}
	return out
}

// SortedByConfidence returns a copy of the elements ordered by
// confidence descending. Ties keep insertion order.
func (d *Description) SortedByConfidence() []Element {
	out := make([]Element, len(d.Elements))
	copy(out, d.Elements)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
// #endregion description-queries

// #region loader
// Parse decodes the JSON form of a scene and validates every element.
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if d.Elements == nil {
		d.Elements = []Element{}
	}
	for i, e := range d.Elements {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return &d, nil
}

// Load reads and parses a scene JSON file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return d, nil
}
// #endregion loader
