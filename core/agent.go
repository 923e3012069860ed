package core

import (
	"context"
	"time"
)

// Agent is the unit-of-work executor contract. Concrete specialists differ
// only in capability tags and execution logic; the registry treats them
// uniformly.
//
// Implementations must:
//   - Keep CanHandle a pure function of the task's declared type and
//     keywords, free of side effects and safe to call concurrently without
//     locking, since the registry may probe several agents before
//     committing to one.
//   - Respect context cancellation inside Execute.
//   - Return either a terminal Result or an error; the registry converts
//     errors (and panics) into execution-error Results.
type Agent interface {
	// Type returns the stable identifier tasks target (e.g. "filesystem").
	// Unique within a registry.
	Type() string

	// Capabilities lists the capability tags used for keyword matching.
	Capabilities() []string

	// MaxConcurrentTasks is the admission bound the limiter enforces for
	// this agent's type. Must be positive; non-positive values fall back
	// to the registry's configured ceiling.
	MaxConcurrentTasks() int

	// CanHandle reports whether the agent accepts the task.
	CanHandle(task Task) bool

	// Execute runs the task to completion using the shared cross-agent
	// store. The returned Result's DurationMs is overwritten by the
	// registry with measured wall-clock time.
	Execute(ctx context.Context, task Task, shared SharedContext) (Result, error)
}

// SharedContext is the cross-agent store combining a TTL-bounded content
// cache, a free-form key/value memory and a filtered view of conversation
// history. A single instance is created at process start and shared by all
// concurrently executing agents; the shared package provides the
// implementation.
type SharedContext interface {
	// GetCachedFile returns the cached content for path, fetching it
	// through the external collaborator on a miss or after TTL expiry.
	// Concurrent misses for the same path trigger a single fetch.
	GetCachedFile(ctx context.Context, path string) (string, error)

	// InvalidateFile removes a cache entry immediately regardless of TTL.
	InvalidateFile(path string)

	// SetContextKey writes to the shared memory. Last writer wins under
	// concurrent writes to the same key.
	SetContextKey(key string, value Value)

	// GetContextKey reads from the shared memory.
	GetContextKey(key string) (Value, bool)

	// ConversationHistory returns a read-only view of the shared history
	// filtered for the requesting agent type.
	ConversationHistory(agentType string) []HistoryRecord
}

// HistoryRecord is one externally supplied conversation entry. The raw
// history is produced outside this subsystem; the shared context only
// filters it per agent.
type HistoryRecord struct {
	Role      string    `json:"role"`
	AgentType string    `json:"agent_type,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolRunner is the injected collaborator an agent's Execute calls to do
// the actual tool-backed work. How its output content is produced (prompt
// text, model choice, individual tool actions) is outside this subsystem;
// the agent only shapes the runner's output into a Result.
type ToolRunner interface {
	Run(ctx context.Context, task Task, shared SharedContext) (*ToolOutput, error)
}

// ToolRunnerFunc adapts a function to the ToolRunner interface.
type ToolRunnerFunc func(ctx context.Context, task Task, shared SharedContext) (*ToolOutput, error)

// Run implements ToolRunner.
func (f ToolRunnerFunc) Run(ctx context.Context, task Task, shared SharedContext) (*ToolOutput, error) {
	return f(ctx, task, shared)
}

// ToolOutput is what a ToolRunner hands back to its agent.
type ToolOutput struct {
	// Data is the opaque payload for the Result.
	Data any

	// ToolCalls and TokensUsed feed the Result metrics.
	ToolCalls  int
	TokensUsed int

	// Partial flags that not all sub-work succeeded; PartialReason
	// explains what is missing so the orchestrator can decide whether to
	// accept or retry.
	Partial       bool
	PartialReason string
}
