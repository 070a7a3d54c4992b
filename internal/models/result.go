package models

// ProcessResult is the envelope returned by every mode handler.
// Exactly one of Result or Error is meaningful, depending on Status.
type ProcessResult struct {
	Mode     Mode                   `json:"mode"`
	Status   Status                 `json:"status"`
	Result   interface{}            `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OK reports whether the envelope carries a successful result.
func (r *ProcessResult) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// IDEOutput is the result payload of the IDE pipeline.
type IDEOutput struct {
	Files        []string `json:"files"`        // Every file written, in write order
	Instructions string   `json:"instructions"` // Human-readable next steps
}

// CIReport is the result payload of the CI pipeline. It is also the JSON
// document persisted when report saving is enabled.
type CIReport struct {
	Mode    Mode                   `json:"mode"`
	Status  Status                 `json:"status"`
	Tool    string                 `json:"tool"`
	Summary string                 `json:"summary"`
	Issues  []Issue                `json:"issues"`
	Metrics map[string]interface{} `json:"metrics"`
	Passed  bool                   `json:"passed"`
}

// Issue is a single finding reported by a processor.
type Issue struct {
	Severity string `json:"severity"`          // "critical", "error", "warning", "info"
	Message  string `json:"message"`           // Human-readable description
	File     string `json:"file,omitempty"`    // Related file, if any
	Test     string `json:"test,omitempty"`    // Related test name, if any
	Package  string `json:"package,omitempty"` // Related package, if any
}
