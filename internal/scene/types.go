package scene

import (
	"errors"
	"fmt"
)

// #region errors
var (
	// ErrInvalidElement is returned when an element fails range checks.
	ErrInvalidElement = errors.New("invalid element")
	// ErrUnknownLabel is returned for a label name outside the closed set.
	ErrUnknownLabel = errors.New("unknown element label")
	// ErrUnknownContext is returned for a context name outside the closed set.
	ErrUnknownContext = errors.New("unknown screen context")
)
// #endregion errors

// #region context
// Context is the coarse screen phase a scene was captured in.
type Context int

const (
	MainMenu Context = iota
	InGame
	Loading
	Settings
	GameOver
	Paused
	Unknown
)

var contextNames = [...]string{
	MainMenu: "Main Menu",
	InGame:   "In Game",
	Loading:  "Loading",
	Settings: "Settings",
	GameOver: "Game Over",
	Paused:   "Paused",
	Unknown:  "Unknown",
}

// Contexts returns every context in declaration order.
func Contexts() []Context {
	out := make([]Context, len(contextNames))
	for i := range contextNames {
		out[i] = Context(i)
	}
	return out
}

// Valid reports whether c is one of the declared contexts.
func (c Context) Valid() bool {
	return c >= 0 && int(c) < len(contextNames)
}

func (c Context) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Context(%d)", int(c))
	}
	return contextNames[c]
}

// ParseContext maps a wire name to a Context.
func ParseContext(name string) (Context, error) {
	for i, n := range contextNames {
		if n == name {
			return Context(i), nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownContext, name)
}

func (c Context) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownContext, int(c))
	}
	return []byte(contextNames[c]), nil
}

func (c *Context) UnmarshalText(b []byte) error {
	v, err := ParseContext(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
// #endregion context

// #region label
// Label is the detector class of an element.
type Label int

const (
	Button Label = iota
	TextLabel
	ResourceCounter
	MenuTitle
	VersionInfo
	UnitIcon
	BuildingIcon
	Minimap
	HealthBar
	InputField
	Checkbox
	Slider
	Notification
	Tooltip
	ContextMenu
)

var labelNames = [...]string{
	Button:          "Button",
	TextLabel:       "TextLabel",
	ResourceCounter: "ResourceCounter",
	MenuTitle:       "MenuTitle",
	VersionInfo:     "VersionInfo",
	UnitIcon:        "UnitIcon",
	BuildingIcon:    "BuildingIcon",
	Minimap:         "Minimap",
	HealthBar:       "HealthBar",
	InputField:      "InputField",
	Checkbox:        "Checkbox",
	Slider:          "Slider",
	Notification:    "Notification",
	Tooltip:         "Tooltip",
	ContextMenu:     "ContextMenu",
}

// NumLabels is the size of the label enumeration.
const NumLabels = len(labelNames)

// Labels returns every label in declaration order.
func Labels() []Label {
	out := make([]Label, NumLabels)
	for i := range labelNames {
		out[i] = Label(i)
	}
	return out
}

// Valid reports whether l is one of the declared labels.
func (l Label) Valid() bool {
	return l >= 0 && int(l) < NumLabels
}

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Interactive reports whether elements of this label accept input.
func (l Label) Interactive() bool {
	switch l {
	case Button, InputField, Checkbox, Slider, UnitIcon, BuildingIcon:
		return true
	}
	return false
}

// ParseLabel maps a wire name to a Label.
func ParseLabel(name string) (Label, error) {
	for i, n := range labelNames {
		if n == name {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
}

func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}
	return []byte(labelNames[l]), nil
}

func (l *Label) UnmarshalText(b []byte) error {
	v, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
// #endregion label

// #region element
// Element is one detected interface element. BBox is [x, y, w, h] in
// normalised screen coordinates.
type Element struct {
	Label         Label          `json:"label"`
	SemanticValue string         `json:"semantic_value"`
	BBox          [4]float64     `json:"bbox"`
	Confidence    float64        `json:"confidence"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	DetectedAt    float64        `json:"detection_time,omitempty"`
}
// #endregion element

// #region description
// Description is everything the perception stage reports about one frame.
type Description struct {
	Timestamp        float64        `json:"timestamp"`
	Context          Context        `json:"screen_context"`
	Elements         []Element      `json:"elements"`
	Resolution       [2]int         `json:"screen_resolution"`
	CaptureSource    string         `json:"capture_source,omitempty"`
	ProcessingTimeMs float64        `json:"processing_time_ms,omitempty"`
	ModelVersion     string         `json:"yolo_model_version,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}
// #endregion description
