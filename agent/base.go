package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// BaseAgent supplies the registration-time facts shared by the concrete
// specialists: type identifier, capability tags and the per-type
// concurrency bound. Concrete agents embed it and add Execute.
type BaseAgent struct {
	agentType     string
	capabilities  []string
	maxConcurrent int
	log           logging.Logger
}

// NewBaseAgent constructs the shared agent core.
func NewBaseAgent(agentType string, capabilities []string, maxConcurrent int, log logging.Logger) BaseAgent {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return BaseAgent{
		agentType:     agentType,
		capabilities:  append([]string(nil), capabilities...),
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// Type returns the stable identifier tasks target.
func (b *BaseAgent) Type() string { return b.agentType }

// Capabilities returns a copy of the capability tags.
func (b *BaseAgent) Capabilities() []string {
	return append([]string(nil), b.capabilities...)
}

// MaxConcurrentTasks returns the declared admission bound.
func (b *BaseAgent) MaxConcurrentTasks() int { return b.maxConcurrent }

// CanHandle accepts tasks declaring this agent's type, or whose wording
// matches one of its capability tags. Pure and safe for concurrent probing.
func (b *BaseAgent) CanHandle(task core.Task) bool {
	if task.TargetType == b.agentType {
		return true
	}
	return MatchesCapabilities(task, b.capabilities)
}

// Logger returns the agent's logger.
func (b *BaseAgent) Logger() logging.Logger { return b.log }

// runTask drives the injected runner and shapes its output into a Result.
// Shared by the concrete specialists so partial/success classification
// stays uniform.
func (b *BaseAgent) runTask(ctx context.Context, task core.Task, shared core.SharedContext, runner core.ToolRunner) (core.Result, error) {
	if runner == nil {
		return core.Result{}, fmt.Errorf("agent %q has no tool runner configured", b.agentType)
	}

	out, err := runner.Run(ctx, task, shared)
	if err != nil {
		return core.Result{}, fmt.Errorf("%s runner: %w", b.agentType, err)
	}

	m := core.Metrics{ToolCallCount: out.ToolCalls, TokensUsed: out.TokensUsed}

	if out.Partial {
		b.log.Warn("task partially completed agent_type=%s task_id=%s reason=%s", b.agentType, task.ID, out.PartialReason)
		return core.NewPartialResult(task.ID, out.Data, out.PartialReason, m), nil
	}

	return core.NewSuccessResult(task.ID, out.Data, m), nil
}
