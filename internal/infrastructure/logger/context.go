package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	cashierKey   contextKey = "cashier"
)

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.NewNop()
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored in ctx
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithCashier stores the authenticated cashier name in ctx
func WithCashier(ctx context.Context, cashier string) context.Context {
	return context.WithValue(ctx, cashierKey, cashier)
}

// Cashier returns the cashier stored in ctx
func Cashier(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	c, _ := ctx.Value(cashierKey).(string)
	return c
}

// L returns the context logger enriched with request id, cashier and the
// active span's trace_id and span_id.
//
//	logger.L(ctx).Info("sale committed", zap.Int64("sale_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the request fields carried by ctx to l. Components that own a
// logger use it instead of L.
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if ctx == nil {
		return l
	}

	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if c := Cashier(ctx); c != "" {
		fields = append(fields, zap.String("cashier", c))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
