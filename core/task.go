package core

import (
	"time"

	"github.com/google/uuid"
)

// Priority is advisory scheduling metadata attached to a Task. Admission to
// an agent's slots is strictly FIFO per type; priority is a hint for the
// orchestrator's own queueing decisions, never an admission override.
type Priority string

const (
	// PriorityLow marks background work.
	PriorityLow Priority = "low"
	// PriorityNormal is the default.
	PriorityNormal Priority = "normal"
	// PriorityHigh marks work the orchestrator wants handled promptly.
	PriorityHigh Priority = "high"
)

// Clock supplies the current time. Injecting it instead of calling
// time.Now directly keeps TTL expiry and duration metrics deterministic
// under test.
type Clock func() time.Time

// Task describes one bounded unit of work handed to a specialist agent.
// Its ID is unique for the process lifetime and a Task is immutable once
// constructed; NewTask copies mutable inputs so later changes by the caller
// cannot leak in.
//
// Dependencies declares related task ids for the orchestrator's benefit.
// The registry does not gate execution on dependency completion.
type Task struct {
	ID           string        `json:"id"`
	TargetType   string        `json:"target_type"`
	Description  string        `json:"description"`
	Context      Params        `json:"context,omitempty"`
	Priority     Priority      `json:"priority"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TaskOptions configures construction of a Task.
type TaskOptions struct {
	// Context carries ordered key/value parameters for the agent.
	Context Params

	// Priority defaults to PriorityNormal.
	Priority Priority

	// Timeout bounds the delegation's wait + execution budget. Zero means
	// the registry's configured default applies.
	Timeout time.Duration

	// Dependencies lists ids of related tasks.
	Dependencies []string

	// Clock stamps CreatedAt. Defaults to time.Now.
	Clock Clock
}

// NewTask builds an immutable Task with a fresh process-unique id. Pure
// construction: it never fails, callers validate inputs beforehand.
func NewTask(targetType, description string, optFns ...func(o *TaskOptions)) Task {
	opts := TaskOptions{
		Priority: PriorityNormal,
		Clock:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return Task{
		ID:           uuid.NewString(),
		TargetType:   targetType,
		Description:  description,
		Context:      opts.Context.Clone(),
		Priority:     opts.Priority,
		Timeout:      opts.Timeout,
		Dependencies: append([]string(nil), opts.Dependencies...),
		CreatedAt:    opts.Clock().UTC(),
	}
}
