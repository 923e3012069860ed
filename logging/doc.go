// Package logging provides a tiny abstraction over slog so the rest of
// taskmesh can depend on a minimal interface (Logger) while callers plug in
// any structured logger. It also offers a richer TaskMeshLogger with
// contextual helpers (component, agent type, task id) and domain specific
// logging helpers for delegations, admission waits and cache access.
package logging
