package state

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region debug-struct
// Struct renders the interpretation as a protobuf Struct, the
// string/number map consumed by external tooling.
func (in *Interpretation) Struct() (*structpb.Struct, error) {
	elements := make([]any, len(in.Elements))
	for i, e := range in.Elements {
		elements[i] = map[string]any{
			"slot":        e.Slot,
			"label":       e.Label,
			"center_x":    e.CenterX,
			"center_y":    e.CenterY,
			"confidence":  e.Confidence,
			"interactive": e.Interactive,
		}
	}
	denorm := make(map[string]any, len(in.Resources.Denormalized))
	for k, v := range in.Resources.Denormalized {
		denorm[k] = v
	}
	s, err := structpb.NewStruct(map[string]any{
		"phase": map[string]any{
			"active": in.Phase.Active,
			"raw":    floats(in.Phase.Raw),
		},
		"resources": map[string]any{
			"denormalized": denorm,
			"non_zero":     in.Resources.NonZero,
			"max":          in.Resources.Max,
		},
		"confidence": in.Confidence,
		"elements":   elements,
		"summary": map[string]any{
			"non_zero": in.Summary.NonZero,
			"mean":     in.Summary.Mean,
			"max":      in.Summary.Max,
			"norm":     in.Summary.Norm,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build debug struct: %w", err)
	}
	return s, nil
}

// JSON renders the interpretation through protojson.
func (in *Interpretation) JSON(indent bool) ([]byte, error) {
	s, err := in.Struct()
	if err != nil {
		return nil, err
	}
	opts := protojson.MarshalOptions{}
	if indent {
		opts.Multiline = true
		opts.Indent = "  "
	}
	return opts.Marshal(s)
}

func floats(v []float32) []any {
	out := make([]any, len(v))
	for i, x := range v {
		out[i] = x
	}
	return out
}
// #endregion debug-struct
