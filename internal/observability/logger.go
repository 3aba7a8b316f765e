package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/tron-node-provider/internal/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds a zap logger. format "json" selects the production
// encoder, anything else the human-readable development encoder.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// WithContext returns logger annotated with the request-scoped fields in ctx.
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	logger = OrNop(logger)

	var fields []Field
	if id := shared.RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if role := shared.NodeRole(ctx); role != "" {
		fields = append(fields, zap.String("node_role", role))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
