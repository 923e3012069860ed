// Package registry holds the set of registered agents, routes tasks to the
// agent of their declared type, enforces delegation-depth limits and drives
// the admission limiter. It guarantees exactly one terminal Result per
// delegation, including on timeout and on faults inside an agent.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/limiter"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
)

// Options configures a Registry.
type Options struct {
	// Bus receives lifecycle, status and task records. Defaults to a
	// fresh bus with reference bounds.
	Bus *bus.Bus

	// Shared is handed to every agent's Execute. May be nil when agents
	// do not consult the shared store.
	Shared core.SharedContext

	// Limiter defaults to a fresh limiter using SlotWaitTimeout.
	Limiter *limiter.Limiter

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics defaults to NoopRecorder.
	Metrics metrics.Recorder

	// Clock drives duration measurement. Defaults to time.Now.
	Clock core.Clock

	// MaxDepth is the deepest permitted delegation chain.
	MaxDepth int

	// MaxConcurrentPerAgent is the ceiling for any agent's declared
	// concurrency bound and the fallback when an agent declares none.
	MaxConcurrentPerAgent int

	// DefaultTaskTimeout applies when a task declares no timeout. It
	// covers the whole wait+execution budget.
	DefaultTaskTimeout time.Duration

	// SlotWaitTimeout caps queueing for an admission slot when the
	// delegation deadline is further away.
	SlotWaitTimeout time.Duration
}

// Registry is the agent registry/manager. The agent table is read-mostly:
// a RWMutex guards it for register/unregister while delegation goroutines
// take read locks only; the limiter is the sole per-type concurrency bound.
type Registry struct {
	bus            *bus.Bus
	shared         core.SharedContext
	limiter        *limiter.Limiter
	log            logging.Logger
	rec            metrics.Recorder
	clock          core.Clock
	maxDepth       int
	maxConcurrent  int
	defaultTimeout time.Duration

	mu     sync.RWMutex
	agents map[string]core.Agent
}

// Stats is a diagnostic snapshot; it has no correctness role.
type Stats struct {
	AgentCount    int            `json:"agent_count"`
	Types         []string       `json:"types"`
	InFlight      map[string]int `json:"in_flight"`
	TotalInFlight int            `json:"total_in_flight"`
}

// New constructs a Registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Logger:                logging.NoOpLogger{},
		Metrics:               metrics.NoopRecorder{},
		Clock:                 time.Now,
		MaxDepth:              3,
		MaxConcurrentPerAgent: 5,
		DefaultTaskTimeout:    2 * time.Minute,
		SlotWaitTimeout:       30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Bus == nil {
		opts.Bus = bus.New()
	}
	if opts.Limiter == nil {
		opts.Limiter = limiter.New(func(o *limiter.Options) {
			o.MaxWait = opts.SlotWaitTimeout
			o.Logger = opts.Logger
		})
	}

	return &Registry{
		bus:            opts.Bus,
		shared:         opts.Shared,
		limiter:        opts.Limiter,
		log:            opts.Logger,
		rec:            opts.Metrics,
		clock:          opts.Clock,
		maxDepth:       opts.MaxDepth,
		maxConcurrent:  opts.MaxConcurrentPerAgent,
		defaultTimeout: opts.DefaultTaskTimeout,
		agents:         make(map[string]core.Agent),
	}
}

// Register adds the agent for its type, replacing any previous registration
// of the same type (last registration deterministically wins), sizes its
// admission gate and emits a lifecycle record. The declared concurrency
// bound is clamped to the configured per-agent ceiling.
func (r *Registry) Register(a core.Agent) {
	agentType := a.Type()

	maxConcurrent := a.MaxConcurrentTasks()
	if maxConcurrent < 1 || maxConcurrent > r.maxConcurrent {
		maxConcurrent = r.maxConcurrent
	}

	r.mu.Lock()
	r.agents[agentType] = a
	r.mu.Unlock()

	r.limiter.Configure(agentType, maxConcurrent)
	r.bus.Emit(bus.NewLifecycleRecord(agentType, "registered"))
	r.log.Info("agent registered agent_type=%s max_concurrent=%d", agentType, maxConcurrent)
}

// Unregister removes the agent for a type and emits a lifecycle record.
// Delegations to that type that have not yet started fail with
// agent-not-found; in-flight executions finish and release their slots.
func (r *Registry) Unregister(agentType string) bool {
	r.mu.Lock()
	_, ok := r.agents[agentType]
	delete(r.agents, agentType)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.limiter.Remove(agentType)
	r.bus.Emit(bus.NewLifecycleRecord(agentType, "unregistered"))
	r.log.Info("agent unregistered agent_type=%s", agentType)
	return true
}

// RegisteredTypes returns the currently registered agent types, sorted.
func (r *Registry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// resolve finds the agent for a task: exact target type first, otherwise
// the first capability match probing agents in sorted type order so the
// choice is deterministic. CanHandle is pure and lock-free, so probing
// under the read lock is safe.
func (r *Registry) resolve(task core.Task) (core.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.agents[task.TargetType]; ok {
		return a, true
	}

	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		if a := r.agents[t]; a.CanHandle(task) {
			return a, true
		}
	}
	return nil, false
}

// Delegate routes the task to its agent and returns its single terminal
// Result. The pipeline is: depth check, agent lookup, slot acquisition
// within the task's timeout budget, execution with measured wall-clock
// duration, unconditional slot release, outcome classification and event
// emission. Failures are classified Results carrying a *DelegationError in
// Data, never faults.
func (r *Registry) Delegate(ctx context.Context, task core.Task, depth int) core.Result {
	start := r.clock()

	if depth > r.maxDepth {
		return r.fail(task, start, core.NewDelegationError(
			core.ErrCodeDepthExceeded,
			fmt.Sprintf("delegation depth %d exceeds the configured maximum of %d", depth, r.maxDepth),
			"execute the work directly instead of delegating further",
		))
	}

	agent, ok := r.resolve(task)
	if !ok {
		types := r.RegisteredTypes()
		de := core.NewDelegationError(
			core.ErrCodeAgentNotFound,
			fmt.Sprintf("no agent registered for type %q", task.TargetType),
			fmt.Sprintf("choose one of the available agent types: %v", types),
		)
		de.AvailableTypes = types
		return r.fail(task, start, de)
	}

	agentType := agent.Type()

	budget := task.Timeout
	if budget <= 0 {
		budget = r.defaultTimeout
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	waitStart := r.clock()
	release, err := r.limiter.Acquire(ctx, agentType)
	r.rec.ObserveSlotWait(agentType, r.clock().Sub(waitStart))
	if err != nil {
		return r.fail(task, start, r.classifyAcquire(err))
	}
	defer release()

	r.bus.Emit(bus.NewStatusRecord(agentType, "busy"))
	r.rec.SetInFlight(agentType, r.limiter.InFlight(agentType))

	res, execErr := r.execute(ctx, agent, task, depth)
	duration := r.clock().Sub(start)

	release()
	r.rec.SetInFlight(agentType, r.limiter.InFlight(agentType))
	r.bus.Emit(bus.NewStatusRecord(agentType, "idle"))

	if execErr != nil {
		return r.fail(task, start, r.classifyExecution(ctx, execErr))
	}

	if res.TaskID == "" {
		res.TaskID = task.ID
	}
	if res.Status == "" {
		res.Status = core.StatusSuccess
	}
	res.Metrics.DurationMs = duration.Milliseconds()

	state := "completed"
	if res.Status == core.StatusError {
		state = "failed"
	}
	r.bus.Emit(bus.NewTaskRecord(agentType, task.ID, state, map[string]any{"status": string(res.Status)}))
	r.rec.ObserveDelegation(agentType, string(res.Status), duration)
	r.log.Info("delegation finished agent_type=%s task_id=%s status=%s duration=%s", agentType, task.ID, res.Status, duration)

	return res
}

// execute invokes the agent converting panics into errors so a faulting
// agent always yields a terminal execution-error Result. The context
// handed to the agent carries the incremented delegation depth.
func (r *Registry) execute(ctx context.Context, agent core.Agent, task core.Task, depth int) (res core.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("agent %q panicked: %v", agent.Type(), p)
		}
	}()
	return agent.Execute(WithDepth(ctx, depth+1), task, r.shared)
}

func (r *Registry) classifyAcquire(err error) *core.DelegationError {
	switch {
	case errors.Is(err, limiter.ErrCapacityExceeded):
		return core.NewDelegationError(core.ErrCodeCapacityExceeded,
			err.Error(),
			"retry once the agent frees a slot, or raise its concurrency bound")
	case errors.Is(err, limiter.ErrUnknownType):
		return core.NewDelegationError(core.ErrCodeAgentNotFound,
			err.Error(),
			"the agent was unregistered while the task was queued; re-register it or pick another type")
	case errors.Is(err, context.Canceled):
		return core.NewDelegationError(core.ErrCodeTimeout,
			"delegation cancelled while waiting for an admission slot",
			"retry when the orchestrator is ready to wait for a slot")
	default:
		return core.NewDelegationError(core.ErrCodeTimeout,
			"task timed out waiting for an admission slot",
			"increase the task timeout or retry when the agent is less busy")
	}
}

func (r *Registry) classifyExecution(ctx context.Context, execErr error) *core.DelegationError {
	if errors.Is(execErr, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return core.NewDelegationError(core.ErrCodeTimeout,
			fmt.Sprintf("task timed out during execution: %v", execErr),
			"increase the task timeout or split the task into smaller units")
	}
	if de, ok := core.AsDelegationError(execErr); ok {
		return de
	}
	return core.NewDelegationError(core.ErrCodeExecution,
		execErr.Error(),
		"inspect the agent error and retry if it looks transient")
}

// fail converts a classified failure into the delegation's terminal error
// Result, emits the task-failed record and records metrics. The
// DelegationError rides in Result.Data so callers keep typed access to the
// code, suggestion and available types.
func (r *Registry) fail(task core.Task, start time.Time, de *core.DelegationError) core.Result {
	duration := r.clock().Sub(start)

	res := core.NewErrorResult(task.ID, de.Error(), core.Metrics{DurationMs: duration.Milliseconds()})
	res.Data = de

	r.bus.Emit(bus.NewTaskRecord(task.TargetType, task.ID, "failed", map[string]any{"error_code": string(de.Code)}))
	r.rec.ObserveDelegation(task.TargetType, string(de.Code), duration)
	r.log.Warn("delegation failed agent_type=%s task_id=%s code=%s error=%s", task.TargetType, task.ID, de.Code, de.Message)

	return res
}

// Stats returns a diagnostic snapshot of registered agents and in-flight
// delegations.
func (r *Registry) Stats() Stats {
	types := r.RegisteredTypes()

	inFlight := make(map[string]int, len(types))
	total := 0
	for _, t := range types {
		n := r.limiter.InFlight(t)
		inFlight[t] = n
		total += n
	}

	return Stats{
		AgentCount:    len(types),
		Types:         types,
		InFlight:      inFlight,
		TotalInFlight: total,
	}
}
