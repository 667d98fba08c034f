package scheduler

import (
	"context"
	"fmt"
	"time"

	"cinebook/pkg/logger"
	"cinebook/pkg/model"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// TaskHandler runs one due task. Returning an error schedules a retry.
type TaskHandler func(ctx context.Context, task *model.ExpiryTask) error

type PollerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Lease       time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	return c
}

// Poller drains due expiry tasks on a fixed interval. Several replicas can
// run it at once; the lease on each claimed task keeps them apart.
type Poller struct {
	cfg     PollerConfig
	tasks   TaskRepository
	handler TaskHandler
	clock   clockwork.Clock
	log     *logger.Logger
}

func NewPoller(cfg PollerConfig, tasks TaskRepository, handler TaskHandler, clk clockwork.Clock, log *logger.Logger) *Poller {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Poller{
		cfg:     cfg.withDefaults(),
		tasks:   tasks,
		handler: handler,
		clock:   clk,
		log:     log.Component("expiry-poller"),
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC), gocron.WithClock(p.clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(p.cfg.Interval),
		gocron.NewTask(func() { p.Tick(ctx) }),
		gocron.WithName("expiry-poller"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register expiry job: %w", err)
	}

	p.log.Info("Expiry poller started",
		"interval", p.cfg.Interval.String(),
		"batch_size", p.cfg.BatchSize,
		"lease", p.cfg.Lease.String(),
	)
	s.Start()

	<-ctx.Done()

	if err := s.Shutdown(); err != nil {
		p.log.Error("Expiry scheduler shutdown failed", "error", err)
	}
	p.log.Info("Expiry poller stopped")
	return nil
}

// Tick claims one batch of due tasks and runs them. It returns how many
// tasks completed.
func (p *Poller) Tick(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	now := p.clock.Now()
	tasks, err := p.tasks.ClaimDue(ctx, now, p.cfg.Lease, p.cfg.BatchSize)
	if err != nil {
		p.log.Error("Failed to claim expiry tasks", "error", err, "claimed", len(tasks))
	}

	done := 0
	for _, task := range tasks {
		if p.runOne(ctx, task) {
			done++
		}
	}
	if len(tasks) > 0 {
		p.log.Debug("Expiry batch processed", "claimed", len(tasks), "completed", done)
	}
	return done
}

func (p *Poller) runOne(ctx context.Context, task *model.ExpiryTask) bool {
	err := p.handler(ctx, task)
	if err == nil {
		if cErr := p.tasks.Complete(ctx, task.ID); cErr != nil {
			// The lease lapses and the task runs again; handlers are idempotent.
			p.log.Error("Failed to complete expiry task", "task_id", task.ID, "error", cErr)
			return false
		}
		return true
	}

	final := task.Attempts >= p.cfg.MaxAttempts
	retryAt := p.clock.Now().Add(p.cfg.RetryDelay * time.Duration(task.Attempts))
	p.log.Error("Expiry task failed",
		"task_id", task.ID,
		"booking_id", task.BookingID,
		"attempt", task.Attempts,
		"final", final,
		"error", err,
	)
	if fErr := p.tasks.Fail(ctx, task.ID, err, retryAt, final); fErr != nil {
		p.log.Error("Failed to record expiry task failure", "task_id", task.ID, "error", fErr)
	}
	return false
}
