package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/pipeline"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingID      = errors.New("resource id is required")
	errMissingAPIKey  = errors.New("an API key is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.Is(err, application.ErrUnauthorized), errors.Is(err, application.ErrInvalidAPIKey):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "unauthorized", Message: "authentication failed"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "not_found", Message: "resource not found"})
	case errors.As(err, &vErr):
		code := application.ErrorKind(err)
		if errors.Is(err, application.ErrAlreadyExists) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: code, Message: "resource already exists", Errors: vErr.FieldErrors})
			return
		}
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{ErrorCode: code, Message: "validation failed", Errors: vErr.FieldErrors})
	case errors.Is(err, pipeline.ErrUnknownStage):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "unknown_stage",
			Message:   "validation failed",
			Errors:    map[string]string{"stage": err.Error()},
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "already_exists", Message: "resource already exists"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTimeParam accepts RFC 3339 instants or YYYY-MM-DD dates, the latter
// taken as midnight in loc.
func parseTimeParam(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC 3339 time nor a YYYY-MM-DD date", value)
	}
	return t, nil
}

// optionalTimeParams reads the named query parameters, recording a field
// error for each malformed one.
func optionalTimeParams(r *http.Request, loc *time.Location, names ...string) ([]*time.Time, *application.ValidationError) {
	query := r.URL.Query()
	out := make([]*time.Time, len(names))
	var vErr *application.ValidationError
	for i, name := range names {
		raw := query.Get(name)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, err := parseTimeParam(raw, loc)
		if err != nil {
			if vErr == nil {
				vErr = &application.ValidationError{FieldErrors: map[string]string{}}
			}
			vErr.FieldErrors[name] = err.Error()
			continue
		}
		out[i] = &t
	}
	return out, vErr
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
