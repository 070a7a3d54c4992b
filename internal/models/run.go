package models

import "time"

// RunRecord is the persisted summary of a single dispatcher run.
type RunRecord struct {
	ID        int64         `json:"id"`                 // Database row id (zero until stored)
	RunID     string        `json:"runId"`              // Unique run identifier (uuid)
	Tool      string        `json:"tool"`               // Tool name the dispatcher was created with
	Mode      Mode          `json:"mode"`               // Mode the run executed in
	Status    Status        `json:"status"`             // Envelope status
	Provider  string        `json:"provider,omitempty"` // Provider name for API runs
	Error     string        `json:"error,omitempty"`    // Envelope error message, if any
	Duration  time.Duration `json:"duration"`           // Wall-clock duration of the pipeline
	Timestamp time.Time     `json:"timestamp"`          // When the run finished
}
