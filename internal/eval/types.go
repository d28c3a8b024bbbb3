package eval

// #region eval-config
// EvalConfig holds thresholds for encoded-vector health checks.
type EvalConfig struct {
	MaxOutOfRange   int     // fail if more values than this leave the tolerated band
	MaxActivePhases int     // fail if more phase slots than this are active
	MaxStateNorm    float32 // informational ceiling on the full vector norm
}

// DefaultEvalConfig returns the checks an encoded vector must pass.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxOutOfRange:   0,
		MaxActivePhases: 1,
		MaxStateNorm:    16.0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float32 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a health run.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
