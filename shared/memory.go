package shared

import (
	"hash/fnv"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

const memoryShards = 32

// shardedMemory is the free-form key/value store shared by all agents.
// Keys are spread over fixed shards each with its own RWMutex so reads
// never block on writes to unrelated keys; within one key, last writer
// wins.
type shardedMemory struct {
	shards [memoryShards]memoryShard
}

type memoryShard struct {
	mu     sync.RWMutex
	values map[string]core.Value
}

func newShardedMemory() *shardedMemory {
	m := &shardedMemory{}
	for i := range m.shards {
		m.shards[i].values = make(map[string]core.Value)
	}
	return m
}

func (m *shardedMemory) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%memoryShards]
}

func (m *shardedMemory) set(key string, value core.Value) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (m *shardedMemory) get(key string) (core.Value, bool) {
	s := m.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}
