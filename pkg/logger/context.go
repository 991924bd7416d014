package logger

import (
	"context"
	"sync"
)

var (
	contextKeysMu sync.RWMutex
	contextKeys   = map[any]string{
		RequestIDKey: "request_id",
		EndpointKey:  "endpoint",
	}
)

// RegisterContextKey makes *FCtx methods log ctx.Value(ctxKey) under logField.
func RegisterContextKey(ctxKey any, logField string) {
	contextKeysMu.Lock()
	defer contextKeysMu.Unlock()
	contextKeys[ctxKey] = logField
}

func UnregisterContextKey(ctxKey any) {
	contextKeysMu.Lock()
	defer contextKeysMu.Unlock()
	delete(contextKeys, ctxKey)
}

// WithRequestID stores a request id that *FCtx methods will log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithEndpoint stores the resolved Buffer endpoint pattern for logging.
func WithEndpoint(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, EndpointKey, pattern)
}

func withContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	contextKeysMu.RLock()
	defer contextKeysMu.RUnlock()
	fields := make([]any, 0, len(contextKeys)*2)
	for key, fieldName := range contextKeys {
		if val := ctx.Value(key); val != nil {
			fields = append(fields, fieldName, val)
		}
	}
	return fields
}
