package localnotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/pkg/logger"
	"github.com/LahoumaBarik/SchoolBag/pkg/metrics"
)

// DefaultDueTime is the wall-clock assumed for device reminders when a task
// has no due time. Devices remind mid-morning rather than at midnight.
const DefaultDueTime = "09:00"

// localRule is a device-side reminder rule. The table is intentionally
// smaller than the server's: the device mirrors the deadline, the server owns
// the richer cadence.
type localRule struct {
	kind   string
	offset time.Duration
	title  string
	body   func(task models.Task) string
}

var localRules = []localRule{
	{
		kind:   "task_reminder",
		offset: -24 * time.Hour,
		title:  "Task Reminder",
		body: func(task models.Task) string {
			return fmt.Sprintf("%q is due tomorrow!", task.Title)
		},
	},
	{
		kind:   "task_due",
		offset: -2 * time.Hour,
		title:  "Task Due Soon!",
		body: func(task models.Task) string {
			dueTime := task.DueTime
			if dueTime == "" {
				dueTime = DefaultDueTime
			}
			return fmt.Sprintf("%q is due at %s today!", task.Title, dueTime)
		},
	},
	{
		kind:   "task_overdue",
		offset: 24 * time.Hour,
		title:  "Task Overdue!",
		body: func(task models.Task) string {
			return fmt.Sprintf("%q was due yesterday. Don't forget to complete it!", task.Title)
		},
	},
}

// LocalScheduler mirrors task deadlines into device-local notifications. All
// operations are best-effort: failures are logged and swallowed so the task
// mutation that triggered them never fails on notification plumbing.
type LocalScheduler struct {
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

// NewLocalScheduler constructs a LocalScheduler around the given notifier.
func NewLocalScheduler(notifier Notifier) (*LocalScheduler, error) {
	if notifier == nil {
		return nil, errors.New("local scheduler: notifier is required")
	}
	return &LocalScheduler{
		notifier: notifier,
		now:      time.Now,
		log:      logger.WithComponent("localnotify"),
	}, nil
}

// WithClock overrides the scheduler clock, primarily for tests.
func (s *LocalScheduler) WithClock(now func() time.Time) *LocalScheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// TaskCreated schedules the reminder set for a freshly created task.
func (s *LocalScheduler) TaskCreated(ctx context.Context, task models.Task) {
	s.schedule(ctx, task)
}

// TaskUpdated drops every pending notification for the task and reschedules
// from the new state. Cancellation completes before rescheduling so an edit
// can never leave both old and new reminders pending.
func (s *LocalScheduler) TaskUpdated(ctx context.Context, task models.Task) {
	s.cancelTask(ctx, task.ID)
	s.schedule(ctx, task)
}

// TaskDeleted drops every pending notification for the task.
func (s *LocalScheduler) TaskDeleted(ctx context.Context, taskID string) {
	s.cancelTask(ctx, taskID)
}

// TaskCompleted drops pending reminders and fires an immediate completion
// notice.
func (s *LocalScheduler) TaskCompleted(ctx context.Context, task models.Task) {
	s.cancelTask(ctx, task.ID)

	_, err := s.notifier.Schedule(ctx, Request{
		Title: "Task Completed!",
		Body:  fmt.Sprintf("Great job! You completed %q.", task.Title),
		Data: map[string]string{
			"taskId": task.ID,
			"type":   "task_completed",
		},
	})
	if err != nil {
		s.log.Warn("completion notice failed", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	metrics.LocalSchedules.WithLabelValues("scheduled").Inc()
}

func (s *LocalScheduler) schedule(ctx context.Context, task models.Task) {
	if task.Status == models.TaskStatusCompleted || task.DueDate.IsZero() {
		return
	}

	dueAt := models.CombineDueInstant(task.DueDate, task.DueTime, DefaultDueTime)
	now := s.now()

	for _, rule := range localRules {
		fireAt := dueAt.Add(rule.offset)
		if !fireAt.After(now) {
			metrics.LocalSchedules.WithLabelValues("skipped").Inc()
			continue
		}

		_, err := s.notifier.Schedule(ctx, Request{
			Title:  rule.title,
			Body:   rule.body(task),
			FireAt: fireAt,
			Data: map[string]string{
				"taskId": task.ID,
				"type":   rule.kind,
			},
		})
		if err != nil {
			s.log.Warn("local schedule failed",
				zap.String("task_id", task.ID),
				zap.String("kind", rule.kind),
				zap.Error(err))
			continue
		}
		metrics.LocalSchedules.WithLabelValues("scheduled").Inc()
	}
}

func (s *LocalScheduler) cancelTask(ctx context.Context, taskID string) {
	pending, err := s.notifier.Pending(ctx)
	if err != nil {
		s.log.Warn("pending lookup failed", zap.String("task_id", taskID), zap.Error(err))
		return
	}

	for _, entry := range pending {
		if entry.TaskID() != taskID {
			continue
		}
		if err := s.notifier.Cancel(ctx, entry.ID); err != nil {
			s.log.Warn("cancel failed",
				zap.String("task_id", taskID),
				zap.String("notification_id", entry.ID),
				zap.Error(err))
			continue
		}
		metrics.LocalSchedules.WithLabelValues("cancelled").Inc()
	}
}
