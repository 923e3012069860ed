package taskmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
)

func okRunner(data any) core.ToolRunner {
	return core.ToolRunnerFunc(func(_ context.Context, _ core.Task, _ core.SharedContext) (*core.ToolOutput, error) {
		return &core.ToolOutput{Data: data, ToolCalls: 1, TokensUsed: 10}, nil
	})
}

func TestDelegate_DisabledGateFailsFast(t *testing.T) {
	cfg := config.Default()
	cfg.Enabled = false

	m := New(func(o *Options) { o.Config = cfg })
	m.RegisterAgent(agent.NewFilesystemAgent(okRunner("never")))

	resp := m.Delegate(context.Background(), Input{
		AgentType:   agent.TypeFilesystem,
		Description: "read the file",
	})

	assert.Equal(t, core.StatusError, resp.Status)
	assert.Empty(t, resp.TaskID)
	assert.Contains(t, resp.Error, "disabled")
	assert.Contains(t, resp.Suggestion, config.EnvEnabled)

	// the gate rejects before any task or status activity
	assert.Empty(t, m.Bus().History(bus.KindTask, agent.TypeFilesystem))
	assert.Empty(t, m.Bus().History(bus.KindStatus, agent.TypeFilesystem))
	assert.Equal(t, 0, m.Stats().TotalInFlight)
}

func TestDelegate_Success(t *testing.T) {
	m := New()
	m.RegisterAgent(agent.NewFilesystemAgent(okRunner("file contents")))

	resp := m.Delegate(context.Background(), Input{
		AgentType:   agent.TypeFilesystem,
		Description: "read the file",
		Context:     core.Params{core.P("path", core.StringValue("/tmp/a"))},
	})

	assert.Equal(t, core.StatusSuccess, resp.Status)
	assert.Equal(t, agent.TypeFilesystem, resp.Agent)
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "file contents", resp.Result)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 1, resp.Metrics.ToolCallCount)
}

func TestDelegate_PartialShapesBothPayloadAndError(t *testing.T) {
	runner := core.ToolRunnerFunc(func(_ context.Context, _ core.Task, _ core.SharedContext) (*core.ToolOutput, error) {
		return &core.ToolOutput{
			Data:          "8 of 10 reviewed",
			Partial:       true,
			PartialReason: "two files too large",
		}, nil
	})

	m := New()
	m.RegisterAgent(agent.NewAnalysisAgent(runner))

	resp := m.Delegate(context.Background(), Input{
		AgentType:   agent.TypeAnalysis,
		Description: "review the changes",
	})

	assert.Equal(t, core.StatusPartial, resp.Status)
	assert.Equal(t, "8 of 10 reviewed", resp.Result)
	assert.Equal(t, "two files too large", resp.Error)
	assert.NotEmpty(t, resp.Suggestion)
}

func TestDelegate_UnknownAgentSuggestsAlternatives(t *testing.T) {
	m := New()
	m.RegisterAgent(agent.NewFilesystemAgent(okRunner(nil)))

	resp := m.Delegate(context.Background(), Input{
		AgentType:   "deployment",
		Description: "ship it",
	})

	assert.Equal(t, core.StatusError, resp.Status)
	assert.Contains(t, resp.Error, "deployment")
	assert.Contains(t, resp.Suggestion, agent.TypeFilesystem)
}

func TestUnregisterAgent(t *testing.T) {
	m := New()
	m.RegisterAgent(agent.NewFilesystemAgent(okRunner(nil)))

	require.True(t, m.UnregisterAgent(agent.TypeFilesystem))
	assert.False(t, m.UnregisterAgent(agent.TypeFilesystem))
	assert.Equal(t, 0, m.Stats().AgentCount)
}

func TestSharedStateVisibleAcrossDelegations(t *testing.T) {
	writer := core.ToolRunnerFunc(func(_ context.Context, _ core.Task, shared core.SharedContext) (*core.ToolOutput, error) {
		shared.SetContextKey("build_target", core.StringValue("linux/amd64"))
		return &core.ToolOutput{Data: "stored"}, nil
	})
	reader := core.ToolRunnerFunc(func(_ context.Context, _ core.Task, shared core.SharedContext) (*core.ToolOutput, error) {
		v, _ := shared.GetContextKey("build_target")
		return &core.ToolOutput{Data: v.String()}, nil
	})

	m := New()
	m.RegisterAgent(agent.NewFilesystemAgent(writer))
	m.RegisterAgent(agent.NewAnalysisAgent(reader))

	resp := m.Delegate(context.Background(), Input{AgentType: agent.TypeFilesystem, Description: "record target"})
	require.Equal(t, core.StatusSuccess, resp.Status)

	resp = m.Delegate(context.Background(), Input{AgentType: agent.TypeAnalysis, Description: "read target"})
	require.Equal(t, core.StatusSuccess, resp.Status)
	assert.Equal(t, "linux/amd64", resp.Result)
}

func TestDelegate_AgentCanUseSharedCache(t *testing.T) {
	fetched := 0
	fetcher := func(_ context.Context, path string) (string, error) {
		fetched++
		return "cached " + path, nil
	}

	runner := core.ToolRunnerFunc(func(ctx context.Context, task core.Task, shared core.SharedContext) (*core.ToolOutput, error) {
		v, _ := task.Context.Get("path")
		content, err := shared.GetCachedFile(ctx, v.String())
		if err != nil {
			return nil, err
		}
		return &core.ToolOutput{Data: content}, nil
	})

	m := New(func(o *Options) { o.Fetcher = fetcher })
	m.RegisterAgent(agent.NewFilesystemAgent(runner))

	in := Input{
		AgentType:   agent.TypeFilesystem,
		Description: "read the file",
		Context:     core.Params{core.P("path", core.StringValue("/tmp/a"))},
	}

	for i := 0; i < 2; i++ {
		resp := m.Delegate(context.Background(), in)
		require.Equal(t, core.StatusSuccess, resp.Status)
		assert.Equal(t, "cached /tmp/a", resp.Result)
	}
	assert.Equal(t, 1, fetched)
}
