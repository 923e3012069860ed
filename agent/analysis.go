package agent

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
)

// TypeAnalysis is the registration type of the analysis specialist.
const TypeAnalysis = "analysis"

// AnalysisAgent is the reference specialist for code review and
// architecture analysis tasks. Like the filesystem specialist it delegates
// the actual work to the injected ToolRunner.
type AnalysisAgent struct {
	BaseAgent
	runner core.ToolRunner
}

var _ core.Agent = (*AnalysisAgent)(nil)

// NewAnalysisAgent constructs the analysis specialist around the injected
// runner.
func NewAnalysisAgent(runner core.ToolRunner, optFns ...func(o *Options)) *AnalysisAgent {
	opts := Options{
		Capabilities:       []string{"analyze", "review", "explain", "architecture", "dependencies"},
		MaxConcurrentTasks: 3,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AnalysisAgent{
		BaseAgent: NewBaseAgent(TypeAnalysis, opts.Capabilities, opts.MaxConcurrentTasks, opts.Logger),
		runner:    runner,
	}
}

// Execute implements core.Agent.
func (a *AnalysisAgent) Execute(ctx context.Context, task core.Task, shared core.SharedContext) (core.Result, error) {
	return a.runTask(ctx, task, shared, a.runner)
}
