package state

import (
	"errors"
	"fmt"
	"strings"
)

// #region vector
// Vector is the fixed-length encoding of one scene.
type Vector []float32

// ElementWidth is the number of floats per encoded element.
const ElementWidth = 5

// NoActivePhase is reported by Decode when no phase slot clears the threshold.
const NoActivePhase = "no active phase"
// #endregion vector

// #region section-map
// SectionMap defines the half-open ranges of each section within a Vector.
type SectionMap struct {
	Phase      [2]int `json:"phase"`
	Resources  [2]int `json:"resources"`
	Confidence [2]int `json:"confidence"`
	Elements   [2]int `json:"elements"`
}

// NewSectionMap lays out phases, resources, one confidence slot and the
// remaining element slots in that order.
func NewSectionMap(size, phases, resources int) SectionMap {
	p := phases
	r := p + resources
	c := r + 1
	return SectionMap{
		Phase:      [2]int{0, p},
		Resources:  [2]int{p, r},
		Confidence: [2]int{r, c},
		Elements:   [2]int{c, size},
	}
}

// Named returns the sections keyed by name, in vector order.
func (m SectionMap) Named() []NamedSection {
	return []NamedSection{
		{SectionPhase, m.Phase},
		{SectionResources, m.Resources},
		{SectionConfidence, m.Confidence},
		{SectionElements, m.Elements},
	}
}

// NamedSection pairs a section name with its range.
type NamedSection struct {
	Name  string
	Range [2]int
}

const (
	SectionPhase      = "phase"
	SectionResources  = "resources"
	SectionConfidence = "confidence"
	SectionElements   = "elements"
)
// #endregion section-map

// #region errors
var (
	// ErrValidation marks a vector that breaks the length or finiteness contract.
	ErrValidation = errors.New("vector validation failed")
	// ErrDegraded marks an encode that zero-filled one or more sections.
	ErrDegraded = errors.New("encode degraded")
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid codec config")
)

// SectionError records why one section was zero-filled.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// EncodeError is returned alongside a usable vector when some sections failed.
type EncodeError struct {
	Sections []*SectionError
}

func (e *EncodeError) Error() string {
	parts := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		parts[i] = s.Error()
	}
	return fmt.Sprintf("%v: %s", ErrDegraded, strings.Join(parts, "; "))
}

func (e *EncodeError) Unwrap() []error {
	out := make([]error, 0, len(e.Sections)+1)
	out = append(out, ErrDegraded)
	for _, s := range e.Sections {
		out = append(out, s)
	}
	return out
}

// Failed returns the names of the degraded sections.
func (e *EncodeError) Failed() []string {
	out := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		out[i] = s.Section
	}
	return out
}
// #endregion errors

// #region interpretation
// Interpretation is the debug view of a vector produced by Decode.
type Interpretation struct {
	Phase      PhaseReading     `json:"phase"`
	Resources  ResourceSummary  `json:"resources"`
	Confidence float32          `json:"confidence"`
	Elements   []DecodedElement `json:"elements"`
	Summary    VectorSummary    `json:"summary"`
}

// PhaseReading is the decoded phase section.
type PhaseReading struct {
	Active string    `json:"active"`
	Raw    []float32 `json:"raw"`
}

// ResourceSummary is the decoded resource section.
type ResourceSummary struct {
	Denormalized map[string]float64 `json:"denormalized"`
	Raw          []float32          `json:"raw"`
	NonZero      int                `json:"non_zero"`
	Max          float32            `json:"max"`
}

// DecodedElement is one reconstructed element slot.
type DecodedElement struct {
	Slot        int     `json:"slot"`
	Label       string  `json:"label"`
	LabelValue  float32 `json:"label_value"`
	CenterX     float32 `json:"center_x"`
	CenterY     float32 `json:"center_y"`
	Confidence  float32 `json:"confidence"`
	Interactive bool    `json:"interactive"`
}

// VectorSummary holds whole-vector statistics.
type VectorSummary struct {
	NonZero int     `json:"non_zero"`
	Mean    float64 `json:"mean"`
	Max     float32 `json:"max"`
	Norm    float64 `json:"norm"`
}
// #endregion interpretation

// #region resource-reading
// ResourceReading is the extraction result for one resource slot. Valid is
// false when no counter was routed to the slot or its text held no digits.
type ResourceReading struct {
	Name       string  `json:"name"`
	Raw        float64 `json:"raw"`
	Normalized float32 `json:"normalized"`
	Valid      bool    `json:"valid"`
	Source     string  `json:"source,omitempty"`
}
// #endregion resource-reading
