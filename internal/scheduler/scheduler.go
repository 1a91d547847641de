package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// Runner executes one pipeline invocation.
type Runner interface {
	Run(ctx context.Context) error
}

// Options controls how often and how the runner is triggered.
type Options struct {
	Interval     time.Duration
	RunOnStartup bool
	// Singleton skips a trigger while the previous run is still in flight.
	Singleton bool
	// RunTimeout bounds each run; zero means no limit.
	RunTimeout time.Duration
}

// Scheduler periodically triggers the weather pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	opts      Options
	logger    *log.Entry

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(runner Runner, opts Options, logger *log.Entry) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		opts:      opts,
		logger:    logger.WithField("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.opts.Interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	job := s.scheduler.Every(s.opts.Interval)
	if s.opts.Singleton {
		job = job.SingletonMode()
	}
	if !s.opts.RunOnStartup {
		job = job.WaitForSchedule()
	}

	_, err := job.Do(s.trigger)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.WithFields(log.Fields{
		"interval":       s.opts.Interval.String(),
		"run_on_startup": s.opts.RunOnStartup,
		"singleton":      s.opts.Singleton,
	}).Info("scheduler started")
	return nil
}

func (s *Scheduler) trigger() {
	ctx := s.ctx
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	if err := s.runner.Run(ctx); err != nil {
		s.logger.WithFields(log.Fields{"error": err, "elapsed": time.Since(started).String()}).
			Error("scheduled run failed")
		return
	}
	s.logger.WithField("elapsed", time.Since(started).String()).Debug("scheduled run completed")
}

// Stop stops the scheduler and cancels any in-flight run.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.cancel()
}
