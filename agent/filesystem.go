package agent

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// TypeFilesystem is the registration type of the filesystem specialist.
const TypeFilesystem = "filesystem"

// Options configures a reference specialist.
type Options struct {
	// Capabilities overrides the specialist's default tags.
	Capabilities []string

	// MaxConcurrentTasks overrides the specialist's default bound.
	MaxConcurrentTasks int

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// FilesystemAgent is the reference specialist for file inspection and
// manipulation tasks. File work itself happens inside the injected
// ToolRunner; the agent contributes routing and result shaping.
type FilesystemAgent struct {
	BaseAgent
	runner core.ToolRunner
}

var _ core.Agent = (*FilesystemAgent)(nil)

// NewFilesystemAgent constructs the filesystem specialist around the
// injected runner.
func NewFilesystemAgent(runner core.ToolRunner, optFns ...func(o *Options)) *FilesystemAgent {
	opts := Options{
		Capabilities:       []string{"file", "read", "write", "directory", "glob", "search"},
		MaxConcurrentTasks: 2,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &FilesystemAgent{
		BaseAgent: NewBaseAgent(TypeFilesystem, opts.Capabilities, opts.MaxConcurrentTasks, opts.Logger),
		runner:    runner,
	}
}

// Execute implements core.Agent.
func (a *FilesystemAgent) Execute(ctx context.Context, task core.Task, shared core.SharedContext) (core.Result, error) {
	return a.runTask(ctx, task, shared, a.runner)
}
