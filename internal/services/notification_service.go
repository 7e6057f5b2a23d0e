package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LahoumaBarik/SchoolBag/internal/cache"
	"github.com/LahoumaBarik/SchoolBag/internal/models"
	"github.com/LahoumaBarik/SchoolBag/internal/notifications"
	apperrors "github.com/LahoumaBarik/SchoolBag/pkg/errors"
	"github.com/LahoumaBarik/SchoolBag/pkg/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100

	unreadCountTTL = 30 * time.Second
)

// NotificationDTO is the wire representation of a notification. Field names
// follow the client contract (camelCase, Mongo-style `_id`).
type NotificationDTO struct {
	ID          string         `json:"_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Type        string         `json:"type"`
	RelatedTask *string        `json:"relatedTask,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	IsRead      bool           `json:"isRead"`
	Priority    string         `json:"priority"`
	CreatedAt   time.Time      `json:"createdAt"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID        string
	Title         string
	Message       string
	Type          models.NotificationType
	RelatedTaskID string
	Priority      string

	// Dedup, when set, turns the insert into an idempotent one keyed by
	// (task, type, interval, due instant). Plain creations are not deduplicated.
	Dedup *models.DedupData
	DueAt time.Time
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Page       int
	Limit      int
}

// ListNotificationsResult bundles the page with the totals clients render.
type ListNotificationsResult struct {
	Records     []NotificationDTO
	Total       int64
	UnreadCount int64
}

// NotificationService manages durable user notifications.
type NotificationService struct {
	db    *gorm.DB
	hub   *notifications.Hub
	store cache.Store
	now   func() time.Time
}

// NewNotificationService constructs a NotificationService. The hub and cache
// store are optional.
func NewNotificationService(db *gorm.DB, hub *notifications.Hub, store cache.Store) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:    db,
		hub:   hub,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock, primarily for tests.
func (s *NotificationService) WithClock(now func() time.Time) *NotificationService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns a page of notifications for the user ordered by recency,
// together with the owner's total and unread counts.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*ListNotificationsResult, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	page := input.Page
	if page < 1 {
		page = 1
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("notification service: count notifications: %w", err)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ListNotificationsResult{
		Records:     mapNotificationRows(rows),
		Total:       total,
		UnreadCount: unread,
	}, nil
}

// UnreadCount returns the number of unread notifications for the user.
// Counts are cached briefly; every mutation invalidates the cache entry.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	if s.store != nil {
		if raw, ok, err := s.store.Get(ctx, unreadCacheKey(userID)); err == nil && ok {
			if count, convErr := strconv.ParseInt(string(raw), 10, 64); convErr == nil {
				return count, nil
			}
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}

	if s.store != nil {
		_ = s.store.Set(ctx, unreadCacheKey(userID), []byte(strconv.FormatInt(count, 10)), unreadCountTTL)
	}

	return count, nil
}

// Create persists a new notification. The returned bool reports whether a row
// was actually inserted; a false value means the dedup key already existed and
// the attempt was silently absorbed.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, bool, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, false, errors.New("notification service: user id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, false, apperrors.NewBadRequest("title is required")
	}
	if len(title) > 100 {
		return nil, false, apperrors.NewBadRequest("title must be at most 100 characters")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, false, apperrors.NewBadRequest("message is required")
	}
	if len(message) > 500 {
		return nil, false, apperrors.NewBadRequest("message must be at most 500 characters")
	}

	notifType := input.Type
	if notifType == "" {
		notifType = models.NotificationSystem
	}
	if !notifType.Valid() {
		return nil, false, apperrors.NewBadRequest("unknown notification type")
	}

	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	notification := models.Notification{
		BaseModel: models.BaseModel{CreatedAt: s.now()},
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Priority:  priority,
	}

	if taskID := strings.TrimSpace(input.RelatedTaskID); taskID != "" {
		notification.RelatedTaskID = &taskID
	}

	if input.Dedup != nil {
		key := models.BuildDedupKey(input.Dedup.TaskID, notifType, input.Dedup.ReminderInterval, input.DueAt)
		notification.DedupKey = &key

		payload, err := json.Marshal(input.Dedup)
		if err != nil {
			return nil, false, fmt.Errorf("notification service: marshal dedup data: %w", err)
		}
		notification.Data = datatypes.JSON(payload)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(&notification)
	if result.Error != nil {
		return nil, false, fmt.Errorf("notification service: create notification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Absorbed duplicate: the dedup key already has a record.
		metrics.DuplicatesAbsorbed.Inc()
		return nil, false, nil
	}

	metrics.NotificationsCreated.WithLabelValues(string(notifType)).Inc()
	s.invalidateUnread(ctx, userID)

	dto := mapNotification(notification)
	s.broadcast(userID, notifications.EventCreated, &dto, notification.ID)
	return &dto, true, nil
}

// CreateTaskCompleted records the celebratory notification for a finished
// task. Task CRUD lives with the owning application; it calls this when a
// task transitions to completed.
func (s *NotificationService) CreateTaskCompleted(ctx context.Context, task models.Task) (*NotificationDTO, error) {
	dto, _, err := s.Create(ctx, CreateNotificationInput{
		UserID:        task.UserID,
		Title:         "Task Completed!",
		Message:       fmt.Sprintf("Great job! You completed %q.", task.Title),
		Type:          models.NotificationTaskCompleted,
		RelatedTaskID: task.ID,
		Priority:      models.PriorityLow,
	})
	return dto, err
}

// MarkRead sets the read flag on a single notification owned by the user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Cross-owner access deliberately looks identical to a missing record.
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	s.invalidateUnread(ctx, userID)

	dto := mapNotification(notification)
	s.broadcast(userID, notifications.EventRead, &dto, notification.ID)
	return &dto, nil
}

// MarkAllRead marks every unread notification for the user as read and
// returns how many records were updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	s.invalidateUnread(ctx, userID)
	s.broadcast(userID, notifications.EventReadAll, nil, "")
	return result.RowsAffected, nil
}

// Delete removes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.invalidateUnread(ctx, userID)
	s.broadcast(userID, notifications.EventDeleted, nil, notificationID)
	return nil
}

// ExistingDedupKeys returns the dedup keys already recorded for a task. The
// rule engine consults these so an in-flight tick does not re-propose
// reminders. Keys carry the due instant they were minted for, so records
// from a superseded due date do not suppress reminders for the new one.
func (s *NotificationService) ExistingDedupKeys(ctx context.Context, taskID string) (map[string]struct{}, error) {
	ctx = ensureContext(ctx)

	var keys []string
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("related_task_id = ? AND dedup_key IS NOT NULL", taskID).
		Pluck("dedup_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("notification service: load dedup keys: %w", err)
	}

	existing := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		existing[key] = struct{}{}
	}
	return existing, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.store == nil {
		return
	}
	_ = s.store.Delete(ctx, unreadCacheKey(userID))
}

func (s *NotificationService) broadcast(userID, event string, dto *NotificationDTO, notificationID string) {
	if s.hub == nil {
		return
	}
	payload := notifications.Event{
		Event:          event,
		NotificationID: notificationID,
	}
	if dto != nil {
		payload.Notification = dto
	}
	s.hub.Broadcast(userID, payload)
}

func unreadCacheKey(userID string) string {
	return "unread:" + userID
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          row.ID,
		Title:       row.Title,
		Message:     row.Message,
		Type:        string(row.Type),
		RelatedTask: row.RelatedTaskID,
		Data:        decodeJSON(row.Data),
		IsRead:      row.IsRead,
		Priority:    row.Priority,
		CreatedAt:   row.CreatedAt,
		ReadAt:      row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
