// Package dispatch runs the periodic sweep that flags scheduled posts whose
// publication time has passed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec is used when no schedule is configured.
const DefaultSpec = "@every 1m"

// ErrAlreadyStarted is returned by Start on a running sweeper.
var ErrAlreadyStarted = errors.New("dispatch: sweeper already started")

// DueMarker flags overdue posts and reports how many changed.
type DueMarker interface {
	MarkDuePosts(ctx context.Context) (int, error)
}

var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec validates a cron expression or descriptor such as "@every 1m".
func ParseSpec(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSpec
	}
	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("dispatch: invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Sweeper invokes a DueMarker on a cron schedule. Sweeps never overlap.
type Sweeper struct {
	marker DueMarker
	spec   string
	loc    *time.Location
	logger *slog.Logger

	mu     sync.Mutex
	c      *cron.Cron
	cancel context.CancelFunc
}

// NewSweeper validates spec and returns a stopped sweeper.
func NewSweeper(marker DueMarker, spec string, loc *time.Location, logger *slog.Logger) (*Sweeper, error) {
	if marker == nil {
		return nil, fmt.Errorf("dispatch: marker is nil")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := ParseSpec(spec); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		marker: marker,
		spec:   spec,
		loc:    loc,
		logger: logger.With("component", "sweeper"),
	}, nil
}

// Start schedules the sweep and returns immediately.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("dispatch: schedule sweep: %w", err)
	}

	s.c = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("sweeper started", slog.String("spec", s.spec), slog.String("tz", s.loc.String()))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or for
// ctx to expire. Stopping a stopped sweeper is a no-op.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
		s.logger.Warn("sweeper stop deadline exceeded, in-flight sweep cancelled")
		return ctx.Err()
	}
	cancel()
	s.logger.Info("sweeper stopped")
	return nil
}

// RunOnce performs a single sweep. Failures are logged and returned.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	n, err := s.marker.MarkDuePosts(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "posts marked due", "count", n, "duration", time.Since(started))
	} else {
		s.logger.DebugContext(ctx, "sweep found nothing due")
	}
	return n, nil
}

// Run starts the sweeper and blocks until ctx is done, then stops it and
// waits for any running sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop(context.Background())
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
