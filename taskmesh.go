// Package taskmesh provides the delegation entry point over the underlying
// components (registry, limiter, event bus, shared context). An
// orchestrator typically:
//  1. Loads config once at startup (config.Load / config.FromEnv)
//  2. Creates a TaskMesh via New() with the external fetch collaborator
//  3. Registers specialist agents (filesystem, analysis, custom)
//  4. Calls Delegate for each unit of work and inspects the Response
//
// The TaskMesh is an explicit object constructed once per process and
// passed by reference; there are no lazily created singletons.
package taskmesh

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/limiter"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/shared"
)

// Options configures a TaskMesh instance.
type Options struct {
	// Config holds the process-wide settings. Defaults to config.Default().
	Config config.Config

	// Fetcher loads content on shared cache misses. Required for agents
	// that consult the cache; defaults to a fetcher that fails.
	Fetcher shared.Fetcher

	// HistoryFilter controls the per-agent conversation history view.
	HistoryFilter shared.HistoryFilter

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics defaults to NoopRecorder.
	Metrics metrics.Recorder

	// Clock defaults to time.Now.
	Clock core.Clock

	// Bus defaults to a fresh bus with reference bounds.
	Bus *bus.Bus
}

// TaskMesh wires the delegation subsystem together: feature gate, event
// bus, shared context, limiter and registry.
type TaskMesh struct {
	cfg      config.Config
	bus      *bus.Bus
	shared   *shared.Context
	registry *registry.Registry
	log      logging.Logger
}

// New creates a TaskMesh. Construction cannot fail for valid configs; an
// invalid cache bound falls back to the default.
func New(optFns ...func(o *Options)) *TaskMesh {
	opts := Options{
		Config:  config.Default(),
		Logger:  logging.NoOpLogger{},
		Metrics: metrics.NoopRecorder{},
		Clock:   time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Bus == nil {
		opts.Bus = bus.New(func(o *bus.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.Fetcher == nil {
		opts.Fetcher = func(_ context.Context, path string) (string, error) {
			return "", core.NewDelegationError(core.ErrCodeExecution,
				"no cache fetcher configured for path "+path,
				"construct the TaskMesh with a Fetcher to enable the shared cache")
		}
	}

	sharedCtx, err := shared.New(opts.Fetcher, func(o *shared.Options) {
		o.CacheTTL = opts.Config.CacheTTL
		o.CacheMaxEntries = opts.Config.CacheMaxEntries
		o.Clock = opts.Clock
		o.HistoryFilter = opts.HistoryFilter
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	if err != nil {
		sharedCtx, _ = shared.New(opts.Fetcher)
	}

	lim := limiter.New(func(o *limiter.Options) {
		o.MaxWait = opts.Config.SlotWaitTimeout
		o.Logger = opts.Logger
	})

	reg := registry.New(func(o *registry.Options) {
		o.Bus = opts.Bus
		o.Shared = sharedCtx
		o.Limiter = lim
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
		o.Clock = opts.Clock
		o.MaxDepth = opts.Config.MaxDelegationDepth
		o.MaxConcurrentPerAgent = opts.Config.MaxConcurrentAgents
		o.DefaultTaskTimeout = opts.Config.TaskTimeout
		o.SlotWaitTimeout = opts.Config.SlotWaitTimeout
	})

	return &TaskMesh{
		cfg:      opts.Config,
		bus:      opts.Bus,
		shared:   sharedCtx,
		registry: reg,
		log:      opts.Logger,
	}
}

// RegisterAgent adds a specialist to the registry.
func (m *TaskMesh) RegisterAgent(a core.Agent) { m.registry.Register(a) }

// UnregisterAgent removes a specialist by type.
func (m *TaskMesh) UnregisterAgent(agentType string) bool { return m.registry.Unregister(agentType) }

// Bus exposes the event bus for progress reporting.
func (m *TaskMesh) Bus() *bus.Bus { return m.bus }

// Shared exposes the cross-agent store.
func (m *TaskMesh) Shared() *shared.Context { return m.shared }

// Registry exposes the underlying registry for advanced callers.
func (m *TaskMesh) Registry() *registry.Registry { return m.registry }

// Stats returns the registry's diagnostic snapshot.
func (m *TaskMesh) Stats() registry.Stats { return m.registry.Stats() }

// Input describes one delegate-to-agent request from the orchestrator.
type Input struct {
	// AgentType selects the specialist, e.g. "filesystem" or "analysis".
	AgentType string

	// Description is the free-text statement of the work.
	Description string

	// Context carries ordered structured parameters for the agent.
	Context core.Params

	// Priority defaults to normal. Advisory only.
	Priority core.Priority

	// Timeout bounds the wait+execution budget; zero applies the
	// configured default.
	Timeout time.Duration
}

// Response is the orchestrator-facing delegation outcome.
type Response struct {
	Status     core.Status  `json:"status"`
	Agent      string       `json:"agent"`
	TaskID     string       `json:"task_id,omitempty"`
	Result     any          `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	Suggestion string       `json:"suggestion,omitempty"`
	Metrics    core.Metrics `json:"metrics"`
}

// Delegate is the single externally callable operation. It checks the
// feature gate, builds the immutable Task and routes it through the
// registry, shaping the terminal Result into a Response. Disabled
// delegation returns an explanatory error before any limiter interaction
// or event emission.
func (m *TaskMesh) Delegate(ctx context.Context, in Input) Response {
	if !m.cfg.Enabled {
		return Response{
			Status:     core.StatusError,
			Agent:      in.AgentType,
			Error:      "agent delegation is disabled",
			Suggestion: "run the task directly without delegation, or enable it via " + config.EnvEnabled + "=true",
		}
	}

	priority := in.Priority
	if priority == "" {
		priority = core.PriorityNormal
	}

	task := core.NewTask(in.AgentType, in.Description, func(o *core.TaskOptions) {
		o.Context = in.Context
		o.Priority = priority
		o.Timeout = in.Timeout
	})

	res := m.registry.Delegate(ctx, task, registry.DepthFromContext(ctx))

	resp := Response{
		Status:  res.Status,
		Agent:   in.AgentType,
		TaskID:  res.TaskID,
		Metrics: res.Metrics,
	}

	switch res.Status {
	case core.StatusSuccess:
		resp.Result = res.Data
	case core.StatusPartial:
		resp.Result = res.Data
		resp.Error = res.Error
		resp.Suggestion = "review the partial result and retry the unfinished portions"
	default:
		resp.Error = res.Error
		resp.Suggestion = "inspect the error and retry if it looks transient"
		if de, ok := res.Data.(*core.DelegationError); ok {
			resp.Error = de.Message
			if de.Suggestion != "" {
				resp.Suggestion = de.Suggestion
			}
		}
	}

	return resp
}
