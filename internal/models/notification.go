package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationTaskReminder  NotificationType = "task_reminder"
	NotificationTaskDue       NotificationType = "task_due"
	NotificationTaskDueSoon   NotificationType = "task_due_soon"
	NotificationTaskOverdue   NotificationType = "task_overdue"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationTaskUpdated   NotificationType = "task_updated"
	NotificationExamReminder  NotificationType = "exam_reminder"
	NotificationSystem        NotificationType = "system"
)

// Valid reports whether the type belongs to the closed enum.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskReminder, NotificationTaskDue, NotificationTaskDueSoon,
		NotificationTaskOverdue, NotificationTaskCompleted, NotificationTaskUpdated,
		NotificationExamReminder, NotificationSystem:
		return true
	}
	return false
}

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification is a durable in-app notification record for a user.
type Notification struct {
	BaseModel

	UserID  string           `gorm:"type:uuid;index:idx_notifications_user_read;index:idx_notifications_user_created;not null" json:"user_id"`
	Title   string           `gorm:"type:varchar(100);not null" json:"title"`
	Message string           `gorm:"type:varchar(500);not null" json:"message"`
	Type    NotificationType `gorm:"type:varchar(32);default:'system';index" json:"type"`

	// RelatedTaskID links the notification back to the task that produced it.
	RelatedTaskID *string        `gorm:"type:uuid;index" json:"related_task,omitempty"`
	Data          datatypes.JSON `json:"data,omitempty"`

	// DedupKey enforces the at-most-one invariant for scheduler-produced
	// reminders. NULL for plain client-created notifications, which are not
	// deduplicated. Uniqueness lives at the storage layer so concurrent
	// scheduler instances cannot double-insert.
	DedupKey *string `gorm:"type:varchar(160);uniqueIndex" json:"-"`

	IsRead   bool       `gorm:"default:false;index:idx_notifications_user_read" json:"is_read"`
	Priority string     `gorm:"type:varchar(32);default:'medium'" json:"priority"`
	ReadAt   *time.Time `json:"read_at,omitempty"`
}

// DedupData is the structured payload identifying a unique reminder occurrence.
type DedupData struct {
	TaskID           string `json:"taskId"`
	ReminderInterval string `json:"reminderInterval"`
}

// BuildDedupKey derives the storage-level uniqueness key for a reminder.
// The due-instant epoch is part of the key so editing a task's due date
// naturally invalidates previously recorded reminders.
func BuildDedupKey(taskID string, notifType NotificationType, interval string, dueAt time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", taskID, notifType, interval, dueAt.Unix())
}
