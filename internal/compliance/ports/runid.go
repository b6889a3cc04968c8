package ports

import "context"

type runIDKey struct{}

// ContextWithRunID attaches the id of the evaluation run. The Runner stamps it
// on its summary and progress, and sinks stamp it on every row they write.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id attached by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
