package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// New builds the process logger. "prod" gets JSON output at info level,
// "test" the zap example logger, anything else the development console logger.
func New(environment string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch environment {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "test":
		return zap.NewExample(), nil
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
