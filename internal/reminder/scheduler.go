package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/internal/services"
	"github.com/LahoumaBarik/SchoolBag/pkg/logger"
	"github.com/LahoumaBarik/SchoolBag/pkg/metrics"
)

const (
	defaultPeriod       = time.Minute
	defaultFetchTimeout = 30 * time.Second
)

// Scheduler drives the reminder rule engine on a fixed cadence. Each tick
// claims the window [tickStart, tickStart+period) and persists the reminders
// whose fire targets fall inside it.
type Scheduler struct {
	tasks         *services.TaskService
	notifications *services.NotificationService
	cron          *cron.Cron
	period        time.Duration
	fetchTimeout  time.Duration
	now           func() time.Time
	log           *zap.Logger
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithPeriod overrides the tick period. The period is also the width of the
// fire window each tick claims, so two instances with different periods must
// never share a database.
func WithPeriod(period time.Duration) Option {
	return func(s *Scheduler) {
		if period > 0 {
			s.period = period
		}
	}
}

// WithFetchTimeout bounds the task window query per tick.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithNow overrides the clock used for window computation.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler constructs a Scheduler.
func NewScheduler(tasks *services.TaskService, notifications *services.NotificationService, opts ...Option) (*Scheduler, error) {
	if tasks == nil || notifications == nil {
		return nil, errors.New("scheduler: task and notification services are required")
	}

	scheduler := &Scheduler{
		tasks:         tasks,
		notifications: notifications,
		period:        defaultPeriod,
		fetchTimeout:  defaultFetchTimeout,
		now:           time.Now,
		log:           logger.WithComponent("reminder"),
	}
	for _, opt := range opts {
		opt(scheduler)
	}

	if scheduler.cron == nil {
		scheduler.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return scheduler, nil
}

// Start registers the tick job and launches the scheduler. A tick that is
// still running when the next fires is skipped rather than overlapped.
func (s *Scheduler) Start() error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("reminder tick failed", zap.Error(err))
		}
	}))

	if _, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.period), job); err != nil {
		return fmt.Errorf("scheduler: register tick: %w", err)
	}

	s.cron.Start()
	s.log.Info("reminder scheduler started", zap.Duration("period", s.period))
	return nil
}

// Stop halts the underlying cron, waiting for a running tick to finish.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes a single tick against the window containing the current
// instant. A failure for one task never blocks reminders for the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	windowStart := s.now().UTC().Truncate(s.period)
	from, to := FetchWindow(windowStart, s.period)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	tasks, err := s.tasks.DueBetween(fetchCtx, from, to)
	cancel()
	if err != nil {
		metrics.SchedulerTicks.WithLabelValues("failure").Inc()
		return fmt.Errorf("scheduler: fetch due tasks: %w", err)
	}

	var errs error
	created := 0
	for _, task := range tasks {
		n, taskErr := s.processTask(ctx, task, windowStart)
		created += n
		if taskErr != nil {
			s.log.Warn("task reminder evaluation failed",
				zap.String("task_id", task.ID),
				zap.Error(taskErr))
			errs = multierr.Append(errs, taskErr)
		}
	}

	if errs != nil {
		metrics.SchedulerTicks.WithLabelValues("failure").Inc()
		return errs
	}

	metrics.SchedulerTicks.WithLabelValues("success").Inc()
	if created > 0 {
		s.log.Info("reminder tick complete",
			zap.Time("window_start", windowStart),
			zap.Int("tasks", len(tasks)),
			zap.Int("created", created))
	}
	return nil
}

func (s *Scheduler) processTask(ctx context.Context, task models.Task, windowStart time.Time) (created int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: task %s panicked: %v", task.ID, r)
		}
	}()

	existing, err := s.notifications.ExistingDedupKeys(ctx, task.ID)
	if err != nil {
		return 0, err
	}

	for _, candidate := range Evaluate(task, windowStart, s.period, existing) {
		_, inserted, createErr := s.notifications.Create(ctx, services.CreateNotificationInput{
			UserID:        task.UserID,
			Title:         candidate.Title,
			Message:       candidate.Message,
			Type:          candidate.Type,
			RelatedTaskID: task.ID,
			Priority:      candidate.Priority,
			Dedup:         &candidate.Dedup,
			DueAt:         candidate.DueAt,
		})
		if createErr != nil {
			err = multierr.Append(err, createErr)
			continue
		}
		if inserted {
			created++
		}
	}
	return created, err
}
