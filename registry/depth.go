package registry

import "context"

type depthKey struct{}

// WithDepth returns a context annotated with the delegation call depth.
// The registry tags the context it passes to an agent's Execute with the
// incremented depth, so an agent that delegates again composes chains
// without plumbing integers by hand.
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthFromContext extracts the delegation depth, zero when absent.
func DepthFromContext(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}
