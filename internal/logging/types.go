package logging

import "time"

// #region degradation-entry
// DegradationEntry is a single row in the degradation_log table: one
// encode that zero-filled at least one section.
type DegradationEntry struct {
	Source    string    `json:"source"`
	Step      int       `json:"step"`
	Timestamp float64   `json:"timestamp"`
	Sections  []string  `json:"sections"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
// #endregion degradation-entry
