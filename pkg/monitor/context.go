package monitor

import "context"

type contextKey string

const runIDKey contextKey = "run_id"

// WithRunID tags ctx with the id of the current run. The log handler prints it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the run id carried by ctx, or "".
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}
