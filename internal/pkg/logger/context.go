package logger

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	schemaKey contextKey = "schema"
)

// WithRunID returns a context carrying the coordinator run id.
// Every log record emitted under this context includes it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID returns the run id stored in ctx, or "".
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSchema returns a context carrying the participant schema name.
func WithSchema(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, schemaKey, schema)
}

// GetSchema returns the schema stored in ctx, or "".
func GetSchema(ctx context.Context) string {
	if v, ok := ctx.Value(schemaKey).(string); ok {
		return v
	}
	return ""
}
