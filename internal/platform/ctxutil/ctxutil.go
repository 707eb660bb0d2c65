package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string

	// Audit scope of the request or job, empty when it has none.
	AuditID   string
	CompanyID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Detached keeps the values of ctx (trace ids) but drops its deadline and
// cancellation, for work that must outlive the request that scheduled it.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(Default(ctx))
}
