package core

// Status classifies the terminal outcome of a delegated Task.
type Status string

const (
	// StatusSuccess means the agent completed all of the task's work.
	StatusSuccess Status = "success"
	// StatusPartial means the agent completed but flags that not all
	// sub-work succeeded; both a payload and an explanation are present.
	StatusPartial Status = "partial"
	// StatusError means the delegation failed; Error carries the detail.
	StatusError Status = "error"
)

// Metrics captures execution accounting for a Result. The registry
// overwrites DurationMs with the wall-clock time it measured; tool call and
// token counts come from the agent's runner.
type Metrics struct {
	DurationMs    int64 `json:"duration_ms"`
	ToolCallCount int   `json:"tool_call_count"`
	TokensUsed    int   `json:"tokens_used"`
}

// Result is the single terminal outcome produced for a Task. Every
// delegation yields exactly one, even on timeout or rejection.
type Result struct {
	TaskID  string  `json:"task_id"`
	Status  Status  `json:"status"`
	Data    any     `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
	Metrics Metrics `json:"metrics"`
}

// NewResult is the general Result constructor. Pure construction, never
// fails; callers validate inputs before calling.
func NewResult(taskID string, status Status, data any, errMsg string, m Metrics) Result {
	return Result{TaskID: taskID, Status: status, Data: data, Error: errMsg, Metrics: m}
}

// NewSuccessResult builds a success Result carrying an opaque payload.
func NewSuccessResult(taskID string, data any, m Metrics) Result {
	return NewResult(taskID, StatusSuccess, data, "", m)
}

// NewPartialResult builds a partial Result carrying both a payload and an
// explanation of what did not complete.
func NewPartialResult(taskID string, data any, errMsg string, m Metrics) Result {
	return NewResult(taskID, StatusPartial, data, errMsg, m)
}

// NewErrorResult builds an error Result.
func NewErrorResult(taskID, errMsg string, m Metrics) Result {
	return NewResult(taskID, StatusError, nil, errMsg, m)
}

// Succeeded reports whether the result is a full success.
func (r Result) Succeeded() bool { return r.Status == StatusSuccess }
