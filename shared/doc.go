// Package shared implements the cross-agent store: a TTL and LRU bounded
// content cache with single-flight fetching, a sharded key/value memory and
// a per-agent filtered view of conversation history. One Context is created
// at process start and handed to every executing agent.
package shared
