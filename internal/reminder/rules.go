package reminder

import (
	"fmt"
	"time"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
)

// Rule describes a single reminder rule: fire Offset before (negative) or
// after (positive) the task's due instant.
type Rule struct {
	// Interval is the stable identifier recorded in dedup keys. It never
	// changes once notifications exist for it.
	Interval string

	// Offset is added to the due instant to obtain the fire target.
	// Negative offsets fire before the deadline, positive after.
	Offset time.Duration

	// Type is the notification category the rule emits for non-exam tasks.
	Type models.NotificationType

	// ExamSubstitution marks rules whose output becomes an exam_reminder
	// when the task is an exam. Short-fuse rules keep their urgency type.
	ExamSubstitution bool

	title   func(task models.Task) string
	message func(task models.Task) string
}

// Rules is the closed server-side rule table, ordered farthest-out first.
// Adding a rule here is the only supported way to change reminder cadence.
var Rules = []Rule{
	{
		Interval:         "3_days",
		Offset:           -72 * time.Hour,
		Type:             models.NotificationTaskReminder,
		ExamSubstitution: true,
		title:            func(models.Task) string { return "Upcoming Deadline" },
		message: func(task models.Task) string {
			return fmt.Sprintf("%q is due in 3 days", task.Title)
		},
	},
	{
		Interval:         "1_day",
		Offset:           -24 * time.Hour,
		Type:             models.NotificationTaskReminder,
		ExamSubstitution: true,
		title:            func(models.Task) string { return "Due Tomorrow" },
		message: func(task models.Task) string {
			return fmt.Sprintf("%q is due tomorrow", task.Title)
		},
	},
	{
		Interval: "2_hours",
		Offset:   -2 * time.Hour,
		Type:     models.NotificationTaskDueSoon,
		title:    func(models.Task) string { return "Due Soon!" },
		message: func(task models.Task) string {
			return fmt.Sprintf("%q is due in 2 hours", task.Title)
		},
	},
	{
		Interval: "overdue",
		Offset:   24 * time.Hour,
		Type:     models.NotificationTaskOverdue,
		title:    func(models.Task) string { return "Task Overdue" },
		message: func(task models.Task) string {
			return fmt.Sprintf("%q was due yesterday and is still open", task.Title)
		},
	},
}

// NotificationType resolves the type the rule emits for the given task,
// applying the exam substitution where the rule allows it.
func (r Rule) NotificationType(task models.Task) models.NotificationType {
	if r.ExamSubstitution && task.Type == models.TaskTypeExam {
		return models.NotificationExamReminder
	}
	return r.Type
}

// Title renders the rule's notification title for the task.
func (r Rule) Title(task models.Task) string {
	if r.ExamSubstitution && task.Type == models.TaskTypeExam {
		return "Exam Coming Up"
	}
	return r.title(task)
}

// Message renders the rule's notification body for the task.
func (r Rule) Message(task models.Task) string {
	if r.ExamSubstitution && task.Type == models.TaskTypeExam {
		switch r.Interval {
		case "1_day":
			return fmt.Sprintf("Your exam %q is tomorrow. Time to review!", task.Title)
		default:
			return fmt.Sprintf("Your exam %q is in 3 days. Start preparing!", task.Title)
		}
	}
	return r.message(task)
}

// Priority maps the task's own priority onto the emitted notification.
func (r Rule) Priority(task models.Task) string {
	if task.Priority == models.PriorityHigh || r.Offset > 0 {
		return models.PriorityHigh
	}
	if r.Interval == "2_hours" {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}

// MaxLookback is how far the farthest-out rule reaches before a due instant.
// The scheduler widens its task fetch by this much on the future side and by
// the largest positive offset on the past side.
func MaxLookback() (before, after time.Duration) {
	for _, rule := range Rules {
		if rule.Offset < 0 && -rule.Offset > before {
			before = -rule.Offset
		}
		if rule.Offset > 0 && rule.Offset > after {
			after = rule.Offset
		}
	}
	return before, after
}
