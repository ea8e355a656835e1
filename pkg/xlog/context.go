package xlog

import (
	"context"
)

type loggerKey struct{}

// discard 未注入 Logger 时使用，保持未初始化状态，所有输出被丢弃
var discard = New()

// FromContext returns the *Logger from context, or an uninitialized Logger that drops everything.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return discard
}

// WithContext stores the *Logger in context.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithAttrs adds attributes to the logger in context and returns a new context.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}
