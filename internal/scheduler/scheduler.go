// Package scheduler runs the periodic expiry sweep of stale reports.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule sweeps once an hour.
const DefaultSchedule = "@every 1h"

// Expirer deletes reports whose expiry time has passed.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper deletes expired reports on a cron schedule.
type Sweeper struct {
	store    Expirer
	schedule string
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Sweeper. An empty schedule means DefaultSchedule.
func New(store Expirer, schedule string, timeout time.Duration, log *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps once, then on every tick of the schedule until ctx is
// cancelled. It returns an error only for an invalid schedule.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { _, _ = s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.schedule, err)
	}

	_, _ = s.Sweep(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep deletes every report that expired before now.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := s.store.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.log.Error("delete expired reports", "error", err)
		return 0, err
	}
	if n > 0 {
		s.log.Info("deleted expired reports", "count", n)
	}
	return n, nil
}
