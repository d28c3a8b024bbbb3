package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crimsonsky/ai-player-sub001/internal/scene"
)

// #region fixture-types

// Episode is a recorded run: one scene per step plus the action taken
// from it and the reward and done flag that followed.
type Episode struct {
	Description string        `json:"description"`
	Source      string        `json:"source,omitempty"`
	Steps       []EpisodeStep `json:"steps"`
}

// EpisodeStep is one recorded decision.
type EpisodeStep struct {
	Scene  scene.Description `json:"scene"`
	Action int32             `json:"action"`
	Reward float32           `json:"reward"`
	Done   bool              `json:"done"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadEpisode reads and parses a JSON episode file. Scenes are decoded
// without range checks so recorded hostile values reach the codec.
func LoadEpisode(path string) (*Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read episode %s: %w", path, err)
	}
	var ep Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return nil, fmt.Errorf("parse episode %s: %w", path, err)
	}
	for i := range ep.Steps {
		if ep.Steps[i].Scene.Elements == nil {
			ep.Steps[i].Scene.Elements = []scene.Element{}
		}
	}
	return &ep, nil
}

// #endregion fixture-loader
