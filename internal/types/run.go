package types

import "time"

// RunSummary describes one generation run.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Mode            string    `json:"mode"`
	Locale          string    `json:"locale"`
	Model           string    `json:"model"`
	Requested       int       `json:"requested"`
	Produced        int       `json:"produced"`
	Failed          int       `json:"failed"`
	FailedScenarios []string  `json:"failed_scenarios,omitempty"`
	OutputPath      string    `json:"output_path,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
