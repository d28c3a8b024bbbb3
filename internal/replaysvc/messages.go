package replaysvc

import "github.com/crimsonsky/ai-player-sub001/internal/replay"

// #region messages
// Transition is one experience on the wire.
type Transition struct {
	State     []float32 `cbor:"1,keyasint"`
	Action    int32     `cbor:"2,keyasint"`
	Reward    float32   `cbor:"3,keyasint"`
	NextState []float32 `cbor:"4,keyasint"`
	Done      bool      `cbor:"5,keyasint"`
}

type AddRequest struct {
	Transitions []Transition `cbor:"1,keyasint"`
}

type AddResponse struct {
	Added int `cbor:"1,keyasint"`
	Size  int `cbor:"2,keyasint"`
}

type SampleRequest struct {
	BatchSize int `cbor:"1,keyasint"`
}

type SampleResponse struct {
	Transitions []Transition `cbor:"1,keyasint"`
	Indices     []int        `cbor:"2,keyasint"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Capacity     int     `cbor:"1,keyasint"`
	Size         int     `cbor:"2,keyasint"`
	Position     int64   `cbor:"3,keyasint"`
	TotalAdded   int64   `cbor:"4,keyasint"`
	TotalSampled int64   `cbor:"5,keyasint"`
	Utilization  float64 `cbor:"6,keyasint"`
	Dense        bool    `cbor:"7,keyasint"`
	StateWidth   int     `cbor:"8,keyasint"`
	Ready        bool    `cbor:"9,keyasint"`
}

// SaveRequest names a snapshot file inside the server's snapshot
// directory. An empty name uses the server default.
type SaveRequest struct {
	Name string `cbor:"1,keyasint"`
}

type SaveResponse struct {
	Path string `cbor:"1,keyasint"`
	Size int    `cbor:"2,keyasint"`
}

type ClearRequest struct{}

type ClearResponse struct {
	Cleared int `cbor:"1,keyasint"`
}
// #endregion messages

// #region conversions
func toTransition(e replay.Experience) Transition {
	return Transition{State: e.State, Action: e.Action, Reward: e.Reward, NextState: e.NextState, Done: e.Done}
}

func (t Transition) experience() replay.Experience {
	return replay.Experience{State: t.State, Action: t.Action, Reward: t.Reward, NextState: t.NextState, Done: t.Done}
}
// #endregion conversions
