// Package limiter implements the per-agent-type admission gate bounding how
// many tasks may execute concurrently against one agent. Admission is FIFO
// among waiters of a type; a cancelled waiter never consumes a slot.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/taskmesh/logging"
)

// ErrCapacityExceeded signals that the limiter's own wait budget expired
// before a slot freed. Callers with their own deadline see that deadline's
// context error instead.
var ErrCapacityExceeded = errors.New("capacity exceeded: no slot freed within the wait budget")

// ErrUnknownType signals acquisition for a type with no configured gate,
// e.g. after a concurrent unregister.
var ErrUnknownType = errors.New("no admission gate for agent type")

// Options configures a Limiter.
type Options struct {
	// MaxWait caps the queue wait applied when the caller's context has no
	// earlier deadline. Zero means wait as long as the context allows.
	MaxWait time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Limiter holds one admission gate per agent type. The gate is a weighted
// semaphore, which queues waiters FIFO and hands slots out in arrival
// order, so no waiter starves and priority never reorders admission.
type Limiter struct {
	maxWait time.Duration
	log     logging.Logger

	mu    sync.RWMutex
	gates map[string]*gate
}

type gate struct {
	sem      *semaphore.Weighted
	capacity int
	inflight atomic.Int64
}

// New constructs an empty Limiter; gates are added via Configure as agents
// register.
func New(optFns ...func(o *Options)) *Limiter {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Limiter{
		maxWait: opts.MaxWait,
		log:     opts.Logger,
		gates:   make(map[string]*gate),
	}
}

// Configure sizes (or resizes) the gate for an agent type. Resizing
// replaces the gate: new acquisitions queue on the new gate while holders
// of old slots release against the gate they acquired from, so the
// in-flight count for the new gate can never exceed its capacity.
func (l *Limiter) Configure(agentType string, maxConcurrent int) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gates[agentType] = &gate{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: maxConcurrent,
	}
	l.log.Debug("limiter gate configured agent_type=%s capacity=%d", agentType, maxConcurrent)
}

// Remove drops the gate for an agent type. Queued waiters fail on their
// context; slot holders release against the removed gate harmlessly.
func (l *Limiter) Remove(agentType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.gates, agentType)
}

// Acquire blocks until a slot for the type frees or the deadline passes.
// It returns a release function that must be called exactly once on every
// exit path of the admitted work; release is idempotent so calling it from
// a defer alongside an explicit call is safe.
func (l *Limiter) Acquire(ctx context.Context, agentType string) (func(), error) {
	g, ok := l.gate(agentType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, agentType)
	}

	waitCtx := ctx
	ownBudget := false
	if l.maxWait > 0 {
		if deadline, has := ctx.Deadline(); !has || time.Until(deadline) > l.maxWait {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
			defer cancel()
			ownBudget = true
		}
	}

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ownBudget && ctx.Err() == nil {
			return nil, ErrCapacityExceeded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	g.inflight.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.inflight.Add(-1)
			g.sem.Release(1)
		})
	}
	return release, nil
}

// InFlight reports the number of currently held slots for a type.
func (l *Limiter) InFlight(agentType string) int {
	if g, ok := l.gate(agentType); ok {
		return int(g.inflight.Load())
	}
	return 0
}

// Capacity reports the configured slot count for a type.
func (l *Limiter) Capacity(agentType string) int {
	if g, ok := l.gate(agentType); ok {
		return g.capacity
	}
	return 0
}

func (l *Limiter) gate(agentType string) (*gate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.gates[agentType]
	return g, ok
}
