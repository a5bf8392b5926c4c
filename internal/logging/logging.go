package logging

import (
	"context"

	"go.uber.org/zap"
)

var logger = zap.NewNop()

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return logger
}

type loggingCtxKey int

const (
	logKey = loggingCtxKey(iota)
)

func FromContextS(ctx context.Context) *zap.SugaredLogger {
	return FromContext(ctx).Sugar()
}

func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return logger
	}
	if vlog, ok := ctx.Value(logKey).(*zap.Logger); ok {
		return vlog
	}
	return logger
}

func NewContextS(ctx context.Context, fields ...interface{}) (nctx context.Context) {
	nctx, _ = NewContextSL(ctx, fields...)
	return
}

func NewContextSL(ctx context.Context, fields ...interface{}) (nctx context.Context, slog *zap.SugaredLogger) {
	slog = FromContextS(ctx).With(fields...)
	nctx = context.WithValue(ctx, logKey, slog.Desugar())
	return
}

// CopyContext carries the logger of from into to. Used to detach work from a request context
// without losing its log fields.
func CopyContext(from, to context.Context) (nctx context.Context) {
	return context.WithValue(to, logKey, FromContext(from))
}

// Build creates a production (JSON) or development logger. Extra output paths are appended
// to the default stderr output.
func Build(production bool, outputPaths ...string) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = append(cfg.OutputPaths, outputPaths...)
	return cfg.Build()
}
