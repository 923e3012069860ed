package agent

import (
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// MatchesCapabilities reports whether the task's declared type or
// description mentions one of the capability tags. A pure keyword
// heuristic, deliberately free of I/O and shared state, so the registry can
// probe it from many goroutines and tests can exercise it in isolation.
func MatchesCapabilities(task core.Task, tags []string) bool {
	haystack := strings.ToLower(task.TargetType + " " + task.Description)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}
