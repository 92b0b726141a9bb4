package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the logger RequestLogger stored on ctx, which already
// carries request_id. Without one it falls back and tags request_id itself.
// The path identifier, when the router resolved one, is added as resource_id.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName)

	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id, ok := RequestIDFromContext(ctx); ok {
			pairs = append(pairs, "request_id", id)
		}
	}

	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id, ok := ResourceIDFromContext(ctx); ok && id != "" {
		pairs = append(pairs, "resource_id", id)
	}
	return logger.With(append(pairs, attrs...)...)
}
