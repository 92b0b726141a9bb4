package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/growth-crm/internal/logging"
	"github.com/example/growth-crm/internal/pipeline"
	"github.com/example/growth-crm/internal/recurrence"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&scoped, nil)))

	serviceLogger(ctx, slog.New(slog.NewTextHandler(&base, nil)), "LeadService", "MoveLead", "lead_id", "lead-1").
		InfoContext(ctx, "moved")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", base.String())
	}
	for _, want := range []string{"service=LeadService", "operation=MoveLead", "lead_id=lead-1"} {
		if !strings.Contains(scoped.String(), want) {
			t.Fatalf("expected %q in %q", want, scoped.String())
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unauthorized", err: ErrInvalidAPIKey, want: "unauthorized"},
		{name: "not found", err: fmt.Errorf("load: %w", ErrNotFound), want: "not_found"},
		{name: "already exists", err: ErrAlreadyExists, want: "already_exists"},
		{name: "unknown stage", err: fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, "Lost"), want: "unknown_stage"},
		{name: "unknown vocabulary", err: pipeline.ErrUnknownVocabulary, want: "unknown_vocabulary"},
		{name: "time format", err: recurrence.ErrInvalidTimeFormat, want: "invalid_time_format"},
		{name: "validation", err: fieldError("name", "required"), want: "validation"},
		{name: "other", err: errors.New("boom"), want: "unexpected"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
