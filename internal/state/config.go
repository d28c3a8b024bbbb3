package state

import (
	"fmt"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

// #region config-types
// ResourceSpec declares one resource slot and the reading that maps to 1.0.
type ResourceSpec struct {
	Name string  `yaml:"name" json:"name"`
	Max  float64 `yaml:"max" json:"max"`
}

// Config fixes the vector layout for the lifetime of a Codec.
type Config struct {
	VectorSize          int             `yaml:"vector_size" json:"vector_size"`
	MaxElements         int             `yaml:"max_elements" json:"max_elements"`
	Phases              []scene.Context `yaml:"phases" json:"phases"`
	Resources           []ResourceSpec  `yaml:"resources" json:"resources"`
	ActivationThreshold float64         `yaml:"activation_threshold" json:"activation_threshold"`
	RangeTolerance      float64         `yaml:"range_tolerance" json:"range_tolerance"`
	HistoryFrames       int             `yaml:"history_frames" json:"history_frames"`
}

// DefaultConfig returns the 256-wide layout: 3 phases, 10 resources,
// one confidence slot and 20 tracked elements.
func DefaultConfig() Config {
	return Config{
		VectorSize:  256,
		MaxElements: 20,
		Phases:      []scene.Context{scene.MainMenu, scene.InGame, scene.Loading},
		Resources: []ResourceSpec{
			{Name: "spice", Max: 10000},
			{Name: "power", Max: 1000},
			{Name: "unit_health", Max: 100},
			{Name: "building_count", Max: 50},
			{Name: "enemy_units", Max: 100},
			{Name: "map_control", Max: 100},
			{Name: "tech_level", Max: 10},
			{Name: "time_elapsed", Max: 3600},
			{Name: "credits", Max: 10000},
			{Name: "score", Max: 10000},
		},
		ActivationThreshold: 0.5,
		RangeTolerance:      1e-4,
		HistoryFrames:       4,
	}
}
// #endregion config-types

// #region config-validate
// Validate checks that the sections fit inside VectorSize.
func (c Config) Validate() error {
	p, r := len(c.Phases), len(c.Resources)
	if c.VectorSize <= p+r+1 {
		return fmt.Errorf("%w: vector_size %d leaves no element slots after %d phase, %d resource and 1 confidence slots",
			ErrInvalidConfig, c.VectorSize, p, r)
	}
	if c.MaxElements < 0 {
		return fmt.Errorf("%w: max_elements %d is negative", ErrInvalidConfig, c.MaxElements)
	}
	if avail := c.VectorSize - p - r - 1; c.MaxElements*ElementWidth > avail {
		return fmt.Errorf("%w: %d elements need %d slots, only %d available",
			ErrInvalidConfig, c.MaxElements, c.MaxElements*ElementWidth, avail)
	}
	seen := make(map[scene.Context]bool, p)
	for _, ctx := range c.Phases {
		if !ctx.Valid() {
			return fmt.Errorf("%w: phase %d", ErrInvalidConfig, int(ctx))
		}
		if seen[ctx] {
			return fmt.Errorf("%w: duplicate phase %s", ErrInvalidConfig, ctx)
		}
		seen[ctx] = true
	}
	names := make(map[string]bool, r)
	for _, spec := range c.Resources {
		if spec.Name == "" {
			return fmt.Errorf("%w: resource with empty name", ErrInvalidConfig)
		}
		if names[spec.Name] {
			return fmt.Errorf("%w: duplicate resource %q", ErrInvalidConfig, spec.Name)
		}
		names[spec.Name] = true
		if !(spec.Max > 0) {
			return fmt.Errorf("%w: resource %q max %v must be positive", ErrInvalidConfig, spec.Name, spec.Max)
		}
	}
	if c.ActivationThreshold < 0 || c.ActivationThreshold >= 1 {
		return fmt.Errorf("%w: activation_threshold %v outside [0,1)", ErrInvalidConfig, c.ActivationThreshold)
	}
	if c.RangeTolerance < 0 {
		return fmt.Errorf("%w: range_tolerance %v is negative", ErrInvalidConfig, c.RangeTolerance)
	}
	if c.HistoryFrames < 1 {
		return fmt.Errorf("%w: history_frames %d must be at least 1", ErrInvalidConfig, c.HistoryFrames)
	}
	return nil
}
// #endregion config-validate
