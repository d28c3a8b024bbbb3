package state

import (
	"log/slog"
	"slices"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

// #region codec-struct
// Codec converts scene descriptions to fixed-length vectors and back.
// It is immutable after New and safe for concurrent use.
type Codec struct {
	cfg      Config
	sections SectionMap
	phaseIdx map[scene.Context]int
	resIdx   map[string]int
	logger   *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger routes degradation and range warnings to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}
// #endregion codec-struct

// #region constructor
// New validates cfg and builds a Codec for it.
func New(cfg Config, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Phases = slices.Clone(cfg.Phases)
	cfg.Resources = slices.Clone(cfg.Resources)

	c := &Codec{
		cfg:      cfg,
		sections: NewSectionMap(cfg.VectorSize, len(cfg.Phases), len(cfg.Resources)),
		phaseIdx: make(map[scene.Context]int, len(cfg.Phases)),
		resIdx:   make(map[string]int, len(cfg.Resources)),
		logger:   slog.New(slog.DiscardHandler),
	}
	for i, p := range cfg.Phases {
		c.phaseIdx[p] = i
	}
	for i, r := range cfg.Resources {
		c.resIdx[r.Name] = i
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}
// #endregion constructor

// #region accessors
// Size returns N, the length of every vector this codec produces.
func (c *Codec) Size() int { return c.cfg.VectorSize }

// Sections returns the section layout.
func (c *Codec) Sections() SectionMap { return c.sections }

// Config returns a copy of the codec configuration.
func (c *Codec) Config() Config {
	cfg := c.cfg
	cfg.Phases = slices.Clone(c.cfg.Phases)
	cfg.Resources = slices.Clone(c.cfg.Resources)
	return cfg
}
// #endregion accessors

// #region layout
// Layout describes the vector format for external tooling.
type Layout struct {
	VectorSize  int            `json:"vector_size"`
	MaxElements int            `json:"max_elements"`
	Sections    SectionMap     `json:"sections"`
	Phases      []string       `json:"phases"`
	Resources   []ResourceSpec `json:"resources"`
	Labels      []string       `json:"labels"`
	Interactive []string       `json:"interactive_labels"`
}

// Layout reports the section boundaries and index tables.
func (c *Codec) Layout() Layout {
	l := Layout{
		VectorSize:  c.cfg.VectorSize,
		MaxElements: c.cfg.MaxElements,
		Sections:    c.sections,
		Resources:   slices.Clone(c.cfg.Resources),
	}
	for _, p := range c.cfg.Phases {
		l.Phases = append(l.Phases, p.String())
	}
	for _, lb := range scene.Labels() {
		l.Labels = append(l.Labels, lb.String())
		if lb.Interactive() {
			l.Interactive = append(l.Interactive, lb.String())
		}
	}
	return l
}
// #endregion layout
