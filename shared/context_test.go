package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

// fakeClock lets tests advance TTL expiry without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingFetcher(count *atomic.Int64) Fetcher {
	return func(_ context.Context, path string) (string, error) {
		count.Add(1)
		return "content of " + path, nil
	}
}

func TestGetCachedFile_HitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int64

	c, err := New(countingFetcher(&fetches), func(o *Options) {
		o.CacheTTL = time.Minute
		o.Clock = clock.Now
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := c.GetCachedFile(context.Background(), "/tmp/a")
		require.NoError(t, err)
		assert.Equal(t, "content of /tmp/a", got)
	}

	assert.Equal(t, int64(1), fetches.Load())
}

func TestGetCachedFile_RefetchAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int64

	c, err := New(countingFetcher(&fetches), func(o *Options) {
		o.CacheTTL = time.Minute
		o.Clock = clock.Now
	})
	require.NoError(t, err)

	_, err = c.GetCachedFile(context.Background(), "/tmp/a")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = c.GetCachedFile(context.Background(), "/tmp/a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestGetCachedFile_ConcurrentMissesShareOneFetch(t *testing.T) {
	var fetches atomic.Int64
	gate := make(chan struct{})

	fetch := func(_ context.Context, path string) (string, error) {
		fetches.Add(1)
		<-gate
		return "content", nil
	}

	c, err := New(fetch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.GetCachedFile(context.Background(), "/tmp/a")
			assert.NoError(t, err)
			assert.Equal(t, "content", got)
		}()
	}

	// let the callers queue up on the in-flight fetch before releasing it
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
}

func TestInvalidateFile_ForcesRefetch(t *testing.T) {
	var fetches atomic.Int64

	c, err := New(countingFetcher(&fetches))
	require.NoError(t, err)

	_, err = c.GetCachedFile(context.Background(), "/tmp/a")
	require.NoError(t, err)

	c.InvalidateFile("/tmp/a")

	_, err = c.GetCachedFile(context.Background(), "/tmp/a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestGetCachedFile_LRUBoundsEntries(t *testing.T) {
	var fetches atomic.Int64

	c, err := New(countingFetcher(&fetches), func(o *Options) {
		o.CacheMaxEntries = 2
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.GetCachedFile(context.Background(), fmt.Sprintf("/tmp/%d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.CacheLen())
}

func TestGetCachedFile_FetchErrorNotCached(t *testing.T) {
	var calls atomic.Int64
	fetch := func(_ context.Context, path string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("transient")
		}
		return "recovered", nil
	}

	c, err := New(fetch)
	require.NoError(t, err)

	_, err = c.GetCachedFile(context.Background(), "/tmp/a")
	require.Error(t, err)

	got, err := c.GetCachedFile(context.Background(), "/tmp/a")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
}

func TestGetCachedFile_CancelledWaiter(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	fetch := func(_ context.Context, path string) (string, error) {
		<-gate
		return "slow", nil
	}

	c, err := New(fetch)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetCachedFile(ctx, "/tmp/a")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}
}

func TestContextKeys_LastWriterWins(t *testing.T) {
	c, err := New(countingFetcher(&atomic.Int64{}))
	require.NoError(t, err)

	c.SetContextKey("branch", core.StringValue("main"))
	c.SetContextKey("branch", core.StringValue("release"))

	v, ok := c.GetContextKey("branch")
	require.True(t, ok)
	assert.Equal(t, "release", v.String())

	_, ok = c.GetContextKey("missing")
	assert.False(t, ok)
}

func TestContextKeys_ConcurrentWriters(t *testing.T) {
	c, err := New(countingFetcher(&atomic.Int64{}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			c.SetContextKey(key, core.NumberValue(float64(n)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		v, ok := c.GetContextKey(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		n, _ := v.AsNumber()
		assert.Equal(t, float64(i), n)
	}
}

func TestConversationHistory_FilteredPerAgent(t *testing.T) {
	c, err := New(countingFetcher(&atomic.Int64{}))
	require.NoError(t, err)

	c.AppendHistory(core.HistoryRecord{Role: "user", Content: "do the thing"})
	c.AppendHistory(core.HistoryRecord{Role: "assistant", AgentType: "filesystem", Content: "reading"})
	c.AppendHistory(core.HistoryRecord{Role: "assistant", AgentType: "analysis", Content: "reviewing"})

	fs := c.ConversationHistory("filesystem")
	require.Len(t, fs, 2)
	assert.Equal(t, "do the thing", fs[0].Content)
	assert.Equal(t, "reading", fs[1].Content)

	other := c.ConversationHistory("planner")
	require.Len(t, other, 1)
	assert.Empty(t, other[0].AgentType)
}

func TestConversationHistory_CustomFilter(t *testing.T) {
	c, err := New(countingFetcher(&atomic.Int64{}), func(o *Options) {
		o.HistoryFilter = func(agentType string, rec core.HistoryRecord) bool {
			return rec.Role == "user"
		}
	})
	require.NoError(t, err)

	c.AppendHistory(core.HistoryRecord{Role: "user", Content: "hi"})
	c.AppendHistory(core.HistoryRecord{Role: "assistant", Content: "hello"})

	got := c.ConversationHistory("filesystem")
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
}
