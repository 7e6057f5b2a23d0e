package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Task types mirror the categories students can file work under.
const (
	TaskTypeAssignment = "assignment"
	TaskTypeExam       = "exam"
	TaskTypeProject    = "project"
	TaskTypeReading    = "reading"
	TaskTypeOther      = "other"
)

// Task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
)

// DefaultDueTime is the wall-clock time assumed when a task carries no due time.
const DefaultDueTime = "23:59"

// Task is an academic task (assignment, exam, ...). The notification subsystem
// treats tasks as read-only: CRUD lives with the task service.
type Task struct {
	BaseModel

	UserID      string `gorm:"type:uuid;index;not null" json:"user_id"`
	Title       string `gorm:"type:varchar(100);not null" json:"title"`
	Description string `gorm:"type:varchar(500)" json:"description"`
	Subject     string `gorm:"type:varchar(50);not null" json:"subject"`
	Type        string `gorm:"type:varchar(32);default:'assignment'" json:"type"`
	Status      string `gorm:"type:varchar(32);default:'pending';index" json:"status"`
	Priority    string `gorm:"type:varchar(32);default:'medium'" json:"priority"`

	// DueDate carries the authoritative date component; DueTime is the local
	// wall-clock "HH:MM" string the date is combined with.
	DueDate time.Time `gorm:"index;not null" json:"due_date"`
	DueTime string    `gorm:"type:varchar(5);default:'23:59'" json:"due_time"`

	DueAt time.Time `gorm:"index" json:"due_at"`
}

// DueInstant combines the due date's date component with the wall-clock due time.
// A missing or malformed due time falls back to DefaultDueTime.
func (t *Task) DueInstant() time.Time {
	return CombineDueInstant(t.DueDate, t.DueTime, DefaultDueTime)
}

// IsReminderCandidate reports whether the task may still produce reminders.
func (t *Task) IsReminderCandidate() bool {
	return t.Status != TaskStatusCompleted && !t.DueDate.IsZero()
}

// BeforeSave keeps the denormalised due instant in sync so schedulers can
// range-query on a single indexed column.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.DueAt = t.DueInstant()
	return nil
}

// CombineDueInstant merges a date and an "HH:MM" wall-clock string into one instant.
func CombineDueInstant(date time.Time, clock, fallback string) time.Time {
	hour, minute, err := parseClock(clock)
	if err != nil {
		hour, minute, err = parseClock(fallback)
		if err != nil {
			hour, minute = 23, 59
		}
	}

	year, month, day := date.Date()
	return time.Date(year, month, day, hour, minute, 0, 0, date.Location())
}

func parseClock(clock string) (hour, minute int, err error) {
	if _, err = fmt.Sscanf(clock, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse due time %q: %w", clock, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("due time %q out of range", clock)
	}
	return hour, minute, nil
}
