package shared

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
)

// DefaultCacheTTL is the reference expiry for cached content.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheMaxEntries bounds the cache even when TTLs are long.
const DefaultCacheMaxEntries = 256

// HistoryFilter decides which conversation records an agent type may see.
// It must be a pure function of its arguments.
type HistoryFilter func(agentType string, rec core.HistoryRecord) bool

// defaultHistoryFilter shows process-wide records plus the agent's own.
func defaultHistoryFilter(agentType string, rec core.HistoryRecord) bool {
	return rec.AgentType == "" || rec.AgentType == agentType
}

// Options configures a Context.
type Options struct {
	// CacheTTL is the content cache expiry. Defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// CacheMaxEntries bounds the cache with LRU eviction. Defaults to
	// DefaultCacheMaxEntries.
	CacheMaxEntries int

	// Clock drives TTL expiry. Defaults to time.Now.
	Clock core.Clock

	// HistoryFilter defaults to showing process-wide records plus the
	// requesting agent's own.
	HistoryFilter HistoryFilter

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics defaults to NoopRecorder.
	Metrics metrics.Recorder
}

// Context is the cross-agent store handed to every executing agent. Create
// one per process at startup; it lives until process exit and needs no
// separate teardown.
type Context struct {
	cache  *fileCache
	memory *shardedMemory
	filter HistoryFilter

	historyMu sync.RWMutex
	history   []core.HistoryRecord
}

var _ core.SharedContext = (*Context)(nil)

// New constructs a Context around the external fetch collaborator.
func New(fetch Fetcher, optFns ...func(o *Options)) (*Context, error) {
	opts := Options{
		CacheTTL:        DefaultCacheTTL,
		CacheMaxEntries: DefaultCacheMaxEntries,
		Clock:           time.Now,
		HistoryFilter:   defaultHistoryFilter,
		Logger:          logging.NoOpLogger{},
		Metrics:         metrics.NoopRecorder{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheMaxEntries <= 0 {
		opts.CacheMaxEntries = DefaultCacheMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HistoryFilter == nil {
		opts.HistoryFilter = defaultHistoryFilter
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}

	cache, err := newFileCache(fetch, opts.CacheTTL, opts.CacheMaxEntries, opts.Clock, opts.Logger, opts.Metrics)
	if err != nil {
		return nil, err
	}

	return &Context{
		cache:  cache,
		memory: newShardedMemory(),
		filter: opts.HistoryFilter,
	}, nil
}

// GetCachedFile returns cached content for path, fetching through the
// external collaborator on a miss or after expiry. Concurrent misses for
// the same path share a single fetch.
func (c *Context) GetCachedFile(ctx context.Context, path string) (string, error) {
	return c.cache.get(ctx, path)
}

// InvalidateFile removes a cache entry immediately; subsequent reads miss
// and refetch.
func (c *Context) InvalidateFile(path string) {
	c.cache.invalidate(path)
}

// SetContextKey writes to the shared memory; last writer wins per key.
func (c *Context) SetContextKey(key string, value core.Value) {
	c.memory.set(key, value)
}

// GetContextKey reads from the shared memory.
func (c *Context) GetContextKey(key string) (core.Value, bool) {
	return c.memory.get(key)
}

// AppendHistory adds an externally produced conversation record to the
// shared history feed.
func (c *Context) AppendHistory(rec core.HistoryRecord) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = append(c.history, rec)
}

// ConversationHistory returns a read-only per-agent filtered copy of the
// shared history, oldest first.
func (c *Context) ConversationHistory(agentType string) []core.HistoryRecord {
	c.historyMu.RLock()
	defer c.historyMu.RUnlock()

	out := make([]core.HistoryRecord, 0, len(c.history))
	for _, rec := range c.history {
		if c.filter(agentType, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// CacheLen reports the current number of cache entries. Diagnostics only.
func (c *Context) CacheLen() int { return c.cache.len() }
