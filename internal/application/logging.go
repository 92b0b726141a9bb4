package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/growth-crm/internal/logging"
	"github.com/example/growth-crm/internal/pipeline"
	"github.com/example/growth-crm/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidAPIKey):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, pipeline.ErrUnknownStage):
		return "unknown_stage"
	case errors.Is(err, pipeline.ErrUnknownVocabulary):
		return "unknown_vocabulary"
	case errors.Is(err, recurrence.ErrInvalidTimeFormat):
		return "invalid_time_format"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
