package logger

import (
	"context"

	"go.uber.org/zap"
)

// New returns a console logger for dev and a JSON logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type requestIDKey struct{}

// WithRequestID stores id on ctx for log lines and outgoing events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
