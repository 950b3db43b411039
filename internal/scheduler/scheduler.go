package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-alerts/internal/notify"
)

// Runner runs one notification batch.
type Runner interface {
	Run(ctx context.Context) notify.Result
}

// Config controls when batches run. Cron takes precedence over Interval.
type Config struct {
	Cron     string
	Interval time.Duration
	Location *time.Location
}

// Scheduler periodically triggers notification runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cfg       Config
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(runner Runner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		runner:    runner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start schedules the notification job and starts the underlying scheduler.
// With neither a cron expression nor an interval nothing is scheduled.
func (s *Scheduler) Start() error {
	var sched *gocron.Scheduler
	switch {
	case s.cfg.Cron != "":
		sched = s.scheduler.Cron(s.cfg.Cron)
	case s.cfg.Interval > 0:
		sched = s.scheduler.Every(s.cfg.Interval).WaitForSchedule()
	default:
		s.logger.Info("scheduler: no schedule configured; notifications run on demand only")
		return nil
	}

	if _, err := sched.SingletonMode().Do(s.runOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "cron", s.cfg.Cron, "interval", s.cfg.Interval)
	return nil
}

// runOnce runs a batch to completion. Once started a run is never cancelled;
// each upstream call and mail dial carries its own timeout.
func (s *Scheduler) runOnce() {
	s.logger.Info("scheduler: running notification job")
	res := s.runner.Run(context.Background())
	s.logger.Info("scheduler: completed notification job", "success", res.Success, "message", res.Message)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
