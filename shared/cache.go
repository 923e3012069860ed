package shared

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
)

// Fetcher loads content for a path on a cache miss, e.g. a filesystem read
// or a remote lookup. It is the external collaborator behind GetCachedFile;
// its implementation is outside this subsystem.
type Fetcher func(ctx context.Context, path string) (string, error)

type cacheEntry struct {
	value     string
	fetchedAt time.Time
}

// fileCache combines an LRU entry bound with time-based expiry. The LRU
// keeps total entries below a hard cap even when TTLs are long; expiry is
// checked against the injected clock on every read so tests can advance
// time without waiting.
type fileCache struct {
	fetch   Fetcher
	clock   core.Clock
	ttl     time.Duration
	entries *lru.Cache[string, cacheEntry]
	group   singleflight.Group
	log     logging.Logger
	rec     metrics.Recorder
}

func newFileCache(fetch Fetcher, ttl time.Duration, maxEntries int, clock core.Clock, log logging.Logger, rec metrics.Recorder) (*fileCache, error) {
	entries, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &fileCache{
		fetch:   fetch,
		clock:   clock,
		ttl:     ttl,
		entries: entries,
		log:     log,
		rec:     rec,
	}, nil
}

// get returns the cached value when present and unexpired, otherwise runs
// the fetcher. Concurrent misses for the same path share one fetch: the
// second caller waits for the first fetch's result instead of issuing a
// duplicate.
func (c *fileCache) get(ctx context.Context, path string) (string, error) {
	if entry, ok := c.entries.Get(path); ok {
		if c.clock().Sub(entry.fetchedAt) < c.ttl {
			c.rec.IncCacheAccess(true)
			c.log.Debug("cache hit path=%s", path)
			return entry.value, nil
		}
		// expired entry, drop it before refetching
		c.entries.Remove(path)
	}

	c.rec.IncCacheAccess(false)
	c.log.Debug("cache miss path=%s", path)

	ch := c.group.DoChan(path, func() (any, error) {
		value, err := c.fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		c.entries.Add(path, cacheEntry{value: value, fetchedAt: c.clock()})
		return value, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("fetch %s: %w", path, res.Err)
		}
		return res.Val.(string), nil
	}
}

// invalidate removes the entry immediately regardless of TTL. A concurrent
// in-flight fetch is forgotten so later calls refetch rather than reuse its
// result.
func (c *fileCache) invalidate(path string) {
	c.entries.Remove(path)
	c.group.Forget(path)
}

func (c *fileCache) len() int { return c.entries.Len() }
