package domain

import "time"

// RefreshEvent announces a completed refresh run to downstream consumers.
type RefreshEvent struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Field      string    `json:"field"`
	Records    int       `json:"records"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Published  bool      `json:"published"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
