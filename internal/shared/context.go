package shared

import "context"

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
	ctxKeyNodeRole  ctxKey = "node-role"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// WithNodeRole records which node a request is being forwarded to.
func WithNodeRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyNodeRole, role)
}

func NodeRole(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyNodeRole).(string)
	return v
}
