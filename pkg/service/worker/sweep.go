package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/errutil"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

// Sweeper runs one scheduled sweep
type Sweeper interface {
	OnScheduledSweep(ctx context.Context, kind types.SweepKind, opts usecase.SweepOptions) (*usecase.SweepResult, error)
}

// Deliverer hands sweep notifications to the sink
type Deliverer interface {
	Deliver(ctx context.Context, notifications []model.Notification)
}

// Observer records sweep outcomes
type Observer interface {
	ObserveSweep(kind string, summary model.Summary, elapsed time.Duration, err error)
}

// Schedule runs one sweep kind every Interval
type Schedule struct {
	Kind     types.SweepKind
	Interval time.Duration
}

// SweepWorker runs scheduled sweeps in one background goroutine. Sweeps
// never overlap: due sweeps run one after another on each tick.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type SweepWorker struct {
	sweeper   Sweeper
	deliverer Deliverer
	observer  Observer
	schedules []Schedule
	limit     int
	tick      time.Duration
	now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

type Option func(*SweepWorker)

// WithObserver records every sweep run
func WithObserver(o Observer) Option {
	return func(w *SweepWorker) {
		w.observer = o
	}
}

// WithLimit bounds how many rows one sweep may process
func WithLimit(n int) Option {
	return func(w *SweepWorker) {
		w.limit = n
	}
}

// WithClock replaces time.Now for deciding which sweeps are due
func WithClock(now func() time.Time) Option {
	return func(w *SweepWorker) {
		w.now = now
	}
}

// NewSweepWorker validates the schedules. The loop wakes up at the shortest
// interval.
func NewSweepWorker(sweeper Sweeper, deliverer Deliverer, schedules []Schedule, opts ...Option) (*SweepWorker, error) {
	if len(schedules) == 0 {
		return nil, goerr.New("no sweep scheduled")
	}

	w := &SweepWorker{
		sweeper:   sweeper,
		deliverer: deliverer,
		schedules: schedules,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, s := range schedules {
		if !s.Kind.IsValid() {
			return nil, goerr.Wrap(usecase.ErrUnknownSweep, "invalid schedule", goerr.V("kind", s.Kind))
		}
		if s.Interval <= 0 {
			return nil, goerr.New("sweep interval must be positive", goerr.V("kind", s.Kind), goerr.V("interval", s.Interval))
		}
		if w.tick == 0 || s.Interval < w.tick {
			w.tick = s.Interval
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins the background loop. It does not block.
func (w *SweepWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("sweep worker starting",
		"tick", w.tick.String(),
		"schedules", len(w.schedules))

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the running sweep to finish
func (w *SweepWorker) Stop() {
	logging.Default().Info("sweep worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("sweep worker stopped")
}

// Done is closed when the loop has exited
func (w *SweepWorker) Done() <-chan struct{} {
	return w.doneCh
}

func (w *SweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	next := make([]time.Time, len(w.schedules))
	start := w.now()
	for i, s := range w.schedules {
		next[i] = start.Add(s.Interval)
	}

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := w.now()
			for i, s := range w.schedules {
				if now.Before(next[i]) {
					continue
				}
				w.RunOnce(ctx, s.Kind)
				next[i] = now.Add(s.Interval)
			}

		case <-w.stopCh:
			logging.From(ctx).Info("sweep worker received stop signal")
			return

		case <-ctx.Done():
			logging.From(ctx).Info("sweep worker context cancelled")
			return
		}
	}
}

// RunOnce runs one sweep synchronously and delivers its notifications.
// Failures are logged and reported, never returned.
func (w *SweepWorker) RunOnce(ctx context.Context, kind types.SweepKind) *usecase.SweepResult {
	started := time.Now()
	result, err := w.sweeper.OnScheduledSweep(ctx, kind, usecase.SweepOptions{Limit: w.limit})
	elapsed := time.Since(started)

	var summary model.Summary
	if result != nil {
		summary = result.Summary
	}
	if w.observer != nil {
		w.observer.ObserveSweep(kind.String(), summary, elapsed, err)
	}

	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "scheduled sweep failed", goerr.V("kind", kind)), "sweep failed (will retry next interval)")
		return nil
	}

	w.deliverer.Deliver(ctx, result.Notifications)
	logging.From(ctx).Info("sweep completed",
		"kind", kind,
		"processed", summary.Processed,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
		"duration", elapsed.String())

	return result
}
