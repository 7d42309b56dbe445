package models

import "time"

// Run is one invocation of the detector over a single input.
type Run struct {
	ID         int64      `json:"id"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	Mode       string     `json:"mode"`
	Device     string     `json:"device"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Frames     int        `json:"frames"`
}

// RunStats summarizes the detections recorded for a run.
type RunStats struct {
	RunID       int64          `json:"run_id"`
	Frames      int            `json:"frames"`
	Detections  int            `json:"detections"`
	LabelCounts map[string]int `json:"label_counts"`
}
