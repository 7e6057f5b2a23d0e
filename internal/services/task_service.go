package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
	apperrors "github.com/LahoumaBarik/SchoolBag/pkg/errors"
)

// TaskService exposes read access to the task table. Task CRUD lives with the
// owning application; the reminder pipeline only ever consumes tasks.
type TaskService struct {
	db *gorm.DB
}

// NewTaskService constructs a TaskService.
func NewTaskService(db *gorm.DB) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	return &TaskService{db: db}, nil
}

// Get loads a single task scoped to its owner.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var task models.Task
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return &task, nil
}

// DueBetween returns every non-completed task whose due instant falls inside
// [from, to). The scheduler issues one such query per tick and slices the
// result per rule in memory.
func (s *TaskService) DueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Where("status <> ?", models.TaskStatusCompleted).
		Where("due_at >= ? AND due_at < ?", from.UTC(), to.UTC()).
		Order("due_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: due window query: %w", err)
	}
	return tasks, nil
}
