package state

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func el(label scene.Label, value string, bbox [4]float64, conf float64) scene.Element {
	return scene.Element{Label: label, SemanticValue: value, BBox: bbox, Confidence: conf}
}

func sampleScene() scene.Description {
	return scene.Description{
		Timestamp: 1,
		Context:   scene.InGame,
		Elements: []scene.Element{
			el(scene.Button, "Build", [4]float64{0.1, 0.8, 0.2, 0.1}, 0.5),
			el(scene.ResourceCounter, "Spice: 2500", [4]float64{0.8, 0.0, 0.1, 0.05}, 0.95),
			el(scene.TextLabel, "Base", [4]float64{0.4, 0.4, 0.2, 0.2}, 0.7),
		},
		Resolution: [2]int{1920, 1080},
	}
}

func TestDefaultLayout(t *testing.T) {
	c := newCodec(t)
	m := c.Sections()
	if m.Phase != [2]int{0, 3} || m.Resources != [2]int{3, 13} || m.Confidence != [2]int{13, 14} || m.Elements != [2]int{14, 256} {
		t.Fatalf("unexpected layout: %+v", m)
	}
	if c.Size() != 256 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"too small":        func(c *Config) { c.VectorSize = 14 },
		"elements overflow": func(c *Config) { c.MaxElements = 100 },
		"negative k":       func(c *Config) { c.MaxElements = -1 },
		"duplicate phase":  func(c *Config) { c.Phases = []scene.Context{scene.InGame, scene.InGame} },
		"zero max":         func(c *Config) { c.Resources[0].Max = 0 },
		"duplicate name":   func(c *Config) { c.Resources[1].Name = c.Resources[0].Name },
		"threshold":        func(c *Config) { c.ActivationThreshold = 1 },
		"history":          func(c *Config) { c.HistoryFrames = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestEncode_ZeroElements(t *testing.T) {
	c := newCodec(t)
	v, err := c.Encode(scene.Description{Context: scene.Loading, Elements: []scene.Element{}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(v) != 256 {
		t.Fatalf("len = %d", len(v))
	}
	if v[2] != 1 || v[0] != 0 || v[1] != 0 {
		t.Fatalf("phase = %v", v[0:3])
	}
	if v[13] != 0 {
		t.Fatalf("confidence = %v", v[13])
	}
	for i := 14; i < 256; i++ {
		if v[i] != 0 {
			t.Fatalf("element slot %d = %v", i, v[i])
		}
	}
}

func TestEncode_UnmappedContext(t *testing.T) {
	c := newCodec(t)
	v, err := c.Encode(scene.Description{Context: scene.Paused})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 3; i++ {
		if v[i] != 0 {
			t.Fatalf("phase slot %d = %v", i, v[i])
		}
	}
}

func TestEncode_Sections(t *testing.T) {
	c := newCodec(t)
	v, err := c.Encode(sampleScene())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if v[1] != 1 {
		t.Fatalf("in-game phase slot = %v", v[1])
	}
	if v[3] != 0.25 {
		t.Fatalf("spice = %v, want 0.25", v[3])
	}
	want := float32((0.5 + 0.95 + 0.7) / 3)
	if math.Abs(float64(v[13]-want)) > 1e-6 {
		t.Fatalf("confidence = %v, want %v", v[13], want)
	}
	// highest confidence first: ResourceCounter, TextLabel, Button
	first := v[14:19]
	if first[0] != float32(scene.ResourceCounter)/float32(scene.NumLabels) || first[3] != 0.95 || first[4] != 0 {
		t.Fatalf("first element = %v", first)
	}
	third := v[24:29]
	if third[0] != 0 || third[4] != 1 || math.Abs(float64(third[1]-0.2)) > 1e-6 || math.Abs(float64(third[2]-0.85)) > 1e-6 {
		t.Fatalf("button element = %v", third)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	c := newCodec(t)
	a, _ := c.Encode(sampleScene())
	b, _ := c.Encode(sampleScene())
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEncode_ConfidenceOrderAndCap(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.InGame}
	for i := 0; i < 30; i++ {
		conf := float64((i*7)%30) / 30
		d.Elements = append(d.Elements, el(scene.UnitIcon, "", [4]float64{0.1, 0.1, 0.1, 0.1}, conf))
	}
	v, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(v) != 256 {
		t.Fatalf("len = %d", len(v))
	}
	prev := float32(2)
	for k := 0; k < 20; k++ {
		conf := v[14+k*5+3]
		if conf > prev {
			t.Fatalf("slot %d confidence %v after %v", k, conf, prev)
		}
		prev = conf
	}
	for i := 14 + 100; i < 256; i++ {
		if v[i] != 0 {
			t.Fatalf("slot %d beyond K is %v", i, v[i])
		}
	}
}

func TestEncode_TiesKeepInsertionOrder(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.InGame, Elements: []scene.Element{
		el(scene.Checkbox, "", [4]float64{0, 0, 0.2, 0.2}, 0.8),
		el(scene.Minimap, "", [4]float64{0, 0, 0.2, 0.2}, 0.8),
	}}
	v, _ := c.Encode(d)
	if v[14] != float32(scene.Checkbox)/float32(scene.NumLabels) || v[19] != float32(scene.Minimap)/float32(scene.NumLabels) {
		t.Fatalf("tie order broken: %v %v", v[14], v[19])
	}
}

func TestEncode_ResourceRouting(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.InGame, Elements: []scene.Element{
		el(scene.ResourceCounter, "Credits 5000", [4]float64{}, 0.9),
		{Label: scene.ResourceCounter, SemanticValue: "Power: 750/1000", Confidence: 0.9, Attributes: map[string]any{"resource": "power"}},
		el(scene.ResourceCounter, "N/A", [4]float64{}, 0.9),
		el(scene.ResourceCounter, "99999999", [4]float64{}, 0.9),
	}}
	readings := c.ExtractResources(d)
	if readings[1].Raw != 750 || !readings[1].Valid {
		t.Fatalf("power reading = %+v", readings[1])
	}
	if readings[0].Raw != 5000 || readings[0].Normalized != 0.5 {
		t.Fatalf("first unnamed should fill spice slot, got %+v", readings[0])
	}
	if readings[2].Valid || readings[2].Raw != 0 || readings[2].Source != "N/A" {
		t.Fatalf("non-numeric reading = %+v", readings[2])
	}
	if readings[3].Normalized != 1 {
		t.Fatalf("huge reading should clamp to 1, got %+v", readings[3])
	}
	if readings[4].Valid || readings[4].Source != "" {
		t.Fatalf("unused slot = %+v", readings[4])
	}

	v, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if v[4] != 0.75 || v[5] != 0 || v[6] != 1 {
		t.Fatalf("resource section = %v", v[3:13])
	}
}

func TestParseReading(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1500", 1500, true},
		{"Spice: 1,500", 1, true},
		{"12.5%", 12.5, true},
		{"v1.2.3", 1.2, true},
		{"none", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseReading(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseReading(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEncode_HostileElementDegradesSection(t *testing.T) {
	c := newCodec(t)
	d := sampleScene()
	d.Elements = append(d.Elements, el(scene.Button, "bad", [4]float64{math.NaN(), 0, 0.1, 0.1}, 0.3))

	v, err := c.Encode(d)
	if err == nil {
		t.Fatal("expected degradation error")
	}
	if !errors.Is(err, ErrDegraded) || !errors.Is(err, scene.ErrInvalidElement) {
		t.Fatalf("unexpected error chain: %v", err)
	}
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EncodeError, got %T", err)
	}
	if got := ee.Failed(); len(got) != 1 || got[0] != SectionElements {
		t.Fatalf("failed sections = %v", got)
	}
	if len(v) != 256 || v[1] != 1 || v[3] != 0.25 {
		t.Fatalf("unaffected sections lost: %v", v[:14])
	}
	for i := 14; i < 256; i++ {
		if v[i] != 0 {
			t.Fatalf("elements not zero-filled at %d", i)
		}
	}
	if err := c.Validate(v); err != nil {
		t.Fatalf("degraded vector fails validation: %v", err)
	}
}

func TestEncode_HostileConfidenceAndContext(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.Context(42), Elements: []scene.Element{
		el(scene.Button, "", [4]float64{0, 0, 0.1, 0.1}, math.Inf(1)),
	}}
	v, err := c.Encode(d)
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
	if len(ee.Sections) != 3 {
		t.Fatalf("failed sections = %v", ee.Failed())
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("slot %d = %v", i, x)
		}
	}
}

func TestEncode_CenterPastEdgeIsClamped(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.InGame, Elements: []scene.Element{
		el(scene.Tooltip, "", [4]float64{0.9, 0.9, 0.6, 0.6}, 0.4),
	}}
	v, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if v[15] != 1 || v[16] != 1 {
		t.Fatalf("center = %v, %v", v[15], v[16])
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	c := newCodec(t)
	v, _ := c.Encode(sampleScene())
	in, err := c.Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Phase.Active != "In Game" {
		t.Fatalf("phase = %q", in.Phase.Active)
	}
	if in.Resources.Denormalized["spice"] != 2500 {
		t.Fatalf("spice = %v", in.Resources.Denormalized["spice"])
	}
	if in.Resources.NonZero != 1 {
		t.Fatalf("non zero resources = %d", in.Resources.NonZero)
	}
	if len(in.Elements) != 3 {
		t.Fatalf("elements = %d", len(in.Elements))
	}
	if in.Elements[0].Label != "ResourceCounter" || in.Elements[2].Label != "Button" || !in.Elements[2].Interactive {
		t.Fatalf("elements = %+v", in.Elements)
	}
	if in.Summary.NonZero == 0 || in.Summary.Max != 1 {
		t.Fatalf("summary = %+v", in.Summary)
	}
}

func TestDecode_NoActivePhase(t *testing.T) {
	c := newCodec(t)
	v := make(Vector, 256)
	v[0] = 0.5
	in, err := c.Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Phase.Active != NoActivePhase {
		t.Fatalf("phase = %q", in.Phase.Active)
	}
	if len(in.Elements) != 0 {
		t.Fatalf("elements = %v", in.Elements)
	}
}

// Button has label index 0, so a zero-size, zero-confidence Button at the
// top-left corner differs from padding only by its interactive flag. Any
// tuple that is entirely zero is treated as an empty slot.
func TestDecode_TopLeftZeroElementVersusPadding(t *testing.T) {
	c := newCodec(t)
	d := scene.Description{Context: scene.InGame, Elements: []scene.Element{
		el(scene.Button, "", [4]float64{0, 0, 0, 0}, 0),
	}}
	v, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	in, _ := c.Decode(v)
	if len(in.Elements) != 1 {
		t.Fatalf("button should survive via interactive flag, got %d", len(in.Elements))
	}

	v[14+4] = 0
	in, _ = c.Decode(v)
	if len(in.Elements) != 0 {
		t.Fatalf("all-zero tuple should be padding, got %+v", in.Elements)
	}
}

func TestDecode_Rejects(t *testing.T) {
	c := newCodec(t)
	if _, err := c.Decode(make(Vector, 10)); !errors.Is(err, ErrValidation) {
		t.Fatalf("short vector: %v", err)
	}
	v := make(Vector, 256)
	v[40] = float32(math.NaN())
	if _, err := c.Decode(v); !errors.Is(err, ErrValidation) {
		t.Fatalf("NaN: %v", err)
	}
	v[40] = float32(math.Inf(-1))
	if _, err := c.Decode(v); !errors.Is(err, ErrValidation) {
		t.Fatalf("Inf: %v", err)
	}
}

func TestValidate_DriftIsWarningOnly(t *testing.T) {
	c := newCodec(t)
	v := make(Vector, 256)
	v[5] = 1.00005
	v[6] = 1.5
	v[7] = -0.2
	if err := c.Validate(v); err != nil {
		t.Fatalf("drift should not fail: %v", err)
	}
	idx := c.OutOfRange(v)
	if len(idx) != 2 || idx[0] != 6 || idx[1] != 7 {
		t.Fatalf("OutOfRange = %v", idx)
	}
}

func TestEncode_Concurrent(t *testing.T) {
	c := newCodec(t)
	want, _ := c.Encode(sampleScene())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := c.Encode(sampleScene())
				if err != nil {
					t.Errorf("Encode: %v", err)
					return
				}
				for k := range got {
					if got[k] != want[k] {
						t.Errorf("index %d differs", k)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestInterpretationStruct(t *testing.T) {
	c := newCodec(t)
	v, _ := c.Encode(sampleScene())
	in, _ := c.Decode(v)
	s, err := in.Struct()
	if err != nil {
		t.Fatalf("Struct: %v", err)
	}
	phase := s.Fields["phase"].GetStructValue()
	if phase.Fields["active"].GetStringValue() != "In Game" {
		t.Fatalf("active = %v", phase.Fields["active"])
	}
	if n := len(s.Fields["elements"].GetListValue().GetValues()); n != 3 {
		t.Fatalf("elements = %d", n)
	}
	if _, err := in.JSON(true); err != nil {
		t.Fatalf("JSON: %v", err)
	}
}

func TestLayout(t *testing.T) {
	l := newCodec(t).Layout()
	if len(l.Labels) != scene.NumLabels || len(l.Interactive) != 6 || len(l.Phases) != 3 || len(l.Resources) != 10 {
		t.Fatalf("layout = %+v", l)
	}
}
