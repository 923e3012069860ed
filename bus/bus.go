package bus

import (
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/logging"
)

// DefaultConfig provides the reference history bounds: status and task
// records keep 100 entries per agent, communication keeps 200 entries in
// total. Metrics records are bounded like status; lifecycle records share
// one global buffer sized like communication.
var DefaultConfig = Config{
	StatusHistoryCap:        100,
	TaskHistoryCap:          100,
	CommunicationHistoryCap: 200,
}

// Config bounds the per-buffer histories.
type Config struct {
	StatusHistoryCap        int
	TaskHistoryCap          int
	CommunicationHistoryCap int
}

// Options configures a Bus.
type Options struct {
	Config Config
	Logger logging.Logger
}

// Handler receives every record of the kind it subscribed to. Handlers are
// invoked synchronously in the emitter's goroutine; keep them short.
type Handler func(Record)

// bufferKey addresses one bounded history. Per-agent kinds key on the
// agent id; global kinds use an empty id.
type bufferKey struct {
	kind    Kind
	agentID string
}

// Bus is the bounded-history publish/subscribe channel. Each history
// buffer carries its own lock so a hot buffer cannot serialize the whole
// bus; the bus-level lock only guards topology (buffer map, subscriptions,
// derived agent state).
type Bus struct {
	cfg Config
	log logging.Logger

	mu        sync.RWMutex
	buffers   map[bufferKey]*ring
	subs      map[Kind]map[int]Handler
	nextSubID int

	// last observed state per agent, derived from lifecycle and status
	// records for ActiveAgents
	agentState map[string]string
}

// New constructs a Bus with bounded default histories.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.StatusHistoryCap <= 0 {
		opts.Config.StatusHistoryCap = DefaultConfig.StatusHistoryCap
	}
	if opts.Config.TaskHistoryCap <= 0 {
		opts.Config.TaskHistoryCap = DefaultConfig.TaskHistoryCap
	}
	if opts.Config.CommunicationHistoryCap <= 0 {
		opts.Config.CommunicationHistoryCap = DefaultConfig.CommunicationHistoryCap
	}

	return &Bus{
		cfg:        opts.Config,
		log:        opts.Logger,
		buffers:    make(map[bufferKey]*ring),
		subs:       make(map[Kind]map[int]Handler),
		agentState: make(map[string]string),
	}
}

// Emit appends the record to its bounded history, trimming the oldest entry
// when the cap is exceeded, then delivers it synchronously to subscribers
// of its kind. A panicking handler is recovered and logged; delivery to the
// remaining subscribers continues.
func (b *Bus) Emit(rec Record) {
	b.buffer(rec.Kind, rec.AgentID).append(rec)
	b.trackAgentState(rec)

	for _, h := range b.handlers(rec.Kind) {
		b.deliver(h, rec)
	}
}

func (b *Bus) deliver(h Handler, rec Record) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error("bus subscriber panicked kind=%s record_id=%s panic=%v", rec.Kind, rec.ID, p)
		}
	}()
	h(rec)
}

// Subscribe registers a handler invoked for every future record of the
// given kind and returns a disposer that removes the subscription. The
// disposer is idempotent and does not require callers to keep the handler
// reference around.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	id := b.nextSubID
	b.nextSubID++
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// History returns a copy of the bounded history for a kind and agent,
// oldest first. Pass an empty agentID for the global kinds (communication,
// lifecycle) or for process-wide records.
func (b *Bus) History(kind Kind, agentID string) []Record {
	b.mu.RLock()
	r, ok := b.buffers[b.key(kind, agentID)]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.snapshot()
}

// ActiveAgents returns the agents currently not in a terminal or idle
// state, derived from lifecycle and status records. Sorted for stable
// output.
func (b *Bus) ActiveAgents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var active []string
	for agent, state := range b.agentState {
		switch state {
		case "idle", "unregistered", "terminated":
		default:
			active = append(active, agent)
		}
	}
	sort.Strings(active)
	return active
}

func (b *Bus) handlers(kind Kind) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, 0, len(b.subs[kind]))
	for _, h := range b.subs[kind] {
		hs = append(hs, h)
	}
	return hs
}

func (b *Bus) key(kind Kind, agentID string) bufferKey {
	switch kind {
	case KindCommunication, KindLifecycle:
		// single global buffer regardless of emitter
		return bufferKey{kind: kind}
	default:
		return bufferKey{kind: kind, agentID: agentID}
	}
}

func (b *Bus) buffer(kind Kind, agentID string) *ring {
	key := b.key(kind, agentID)

	b.mu.RLock()
	r, ok := b.buffers[key]
	b.mu.RUnlock()
	if ok {
		return r
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok = b.buffers[key]; ok {
		return r
	}
	r = newRing(b.capFor(kind))
	b.buffers[key] = r
	return r
}

func (b *Bus) capFor(kind Kind) int {
	switch kind {
	case KindTask:
		return b.cfg.TaskHistoryCap
	case KindCommunication, KindLifecycle:
		return b.cfg.CommunicationHistoryCap
	default:
		return b.cfg.StatusHistoryCap
	}
}

func (b *Bus) trackAgentState(rec Record) {
	if rec.AgentID == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch rec.Kind {
	case KindLifecycle:
		switch rec.Payload["phase"] {
		case "registered":
			b.agentState[rec.AgentID] = "registered"
		case "unregistered":
			delete(b.agentState, rec.AgentID)
		}
	case KindStatus:
		if state := rec.State(); state != "" {
			b.agentState[rec.AgentID] = state
		}
	}
}

// ring is a FIFO bounded buffer guarded by its own lock.
type ring struct {
	mu    sync.Mutex
	max   int
	items []Record
}

func newRing(max int) *ring {
	return &ring{max: max}
}

func (r *ring) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == r.max {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = rec
		return
	}
	r.items = append(r.items, rec)
}

func (r *ring) snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.items))
	copy(out, r.items)
	return out
}
