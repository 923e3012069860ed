package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func staticRunner(out *core.ToolOutput, err error) core.ToolRunner {
	return core.ToolRunnerFunc(func(_ context.Context, _ core.Task, _ core.SharedContext) (*core.ToolOutput, error) {
		return out, err
	})
}

func TestNewFilesystemAgent_Defaults(t *testing.T) {
	a := NewFilesystemAgent(staticRunner(&core.ToolOutput{}, nil))

	assert.Equal(t, TypeFilesystem, a.Type())
	assert.Equal(t, 2, a.MaxConcurrentTasks())
	assert.Contains(t, a.Capabilities(), "glob")

	assert.True(t, a.CanHandle(core.NewTask(TypeFilesystem, "anything")))
	assert.True(t, a.CanHandle(core.NewTask("worker", "read the file at /tmp/a")))
	assert.False(t, a.CanHandle(core.NewTask("worker", "summarize the standup")))
}

func TestNewAnalysisAgent_Defaults(t *testing.T) {
	a := NewAnalysisAgent(staticRunner(&core.ToolOutput{}, nil))

	assert.Equal(t, TypeAnalysis, a.Type())
	assert.Equal(t, 3, a.MaxConcurrentTasks())
	assert.True(t, a.CanHandle(core.NewTask("worker", "review this change")))
}

func TestOptions_Override(t *testing.T) {
	a := NewFilesystemAgent(staticRunner(&core.ToolOutput{}, nil), func(o *Options) {
		o.Capabilities = []string{"archive"}
		o.MaxConcurrentTasks = 7
	})

	assert.Equal(t, 7, a.MaxConcurrentTasks())
	assert.Equal(t, []string{"archive"}, a.Capabilities())
	assert.False(t, a.CanHandle(core.NewTask("worker", "read the file")))
	assert.True(t, a.CanHandle(core.NewTask("worker", "archive the logs")))
}

func TestExecute_Success(t *testing.T) {
	a := NewFilesystemAgent(staticRunner(&core.ToolOutput{
		Data:       "file contents",
		ToolCalls:  2,
		TokensUsed: 120,
	}, nil))

	task := core.NewTask(TypeFilesystem, "read")
	res, err := a.Execute(context.Background(), task, nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusSuccess, res.Status)
	assert.Equal(t, task.ID, res.TaskID)
	assert.Equal(t, "file contents", res.Data)
	assert.Equal(t, 2, res.Metrics.ToolCallCount)
	assert.Equal(t, 120, res.Metrics.TokensUsed)
}

func TestExecute_PartialCarriesDataAndReason(t *testing.T) {
	a := NewAnalysisAgent(staticRunner(&core.ToolOutput{
		Data:          "reviewed 8 of 10 files",
		Partial:       true,
		PartialReason: "two files exceeded the size limit",
	}, nil))

	res, err := a.Execute(context.Background(), core.NewTask(TypeAnalysis, "review"), nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusPartial, res.Status)
	assert.Equal(t, "reviewed 8 of 10 files", res.Data)
	assert.Equal(t, "two files exceeded the size limit", res.Error)
}

func TestExecute_RunnerError(t *testing.T) {
	a := NewFilesystemAgent(staticRunner(nil, errors.New("disk gone")))

	_, err := a.Execute(context.Background(), core.NewTask(TypeFilesystem, "read"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filesystem runner")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestExecute_NoRunnerConfigured(t *testing.T) {
	a := NewFilesystemAgent(nil)

	_, err := a.Execute(context.Background(), core.NewTask(TypeFilesystem, "read"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool runner")
}

func TestExecute_RunnerSeesTaskContext(t *testing.T) {
	var gotPath string
	runner := core.ToolRunnerFunc(func(_ context.Context, task core.Task, _ core.SharedContext) (*core.ToolOutput, error) {
		if v, ok := task.Context.Get("path"); ok {
			gotPath = v.String()
		}
		return &core.ToolOutput{Data: "ok"}, nil
	})

	a := NewFilesystemAgent(runner)
	task := core.NewTask(TypeFilesystem, "read", func(o *core.TaskOptions) {
		o.Context = core.Params{core.P("path", core.StringValue("/etc/hosts"))}
	})

	_, err := a.Execute(context.Background(), task, nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", gotPath)
}
