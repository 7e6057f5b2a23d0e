package clientstate

import (
	"context"
	"sync"
	"time"
)

// State mirrors the server's notification view for one signed-in user. All
// mutating calls hit the API first and only adjust the local copy on success,
// so the view never drifts ahead of the server.
type State struct {
	client *Client

	mu          sync.RWMutex
	records     []Notification
	unreadCount int64

	now func() time.Time
}

// NewState constructs a State around a Client.
func NewState(client *Client) *State {
	return &State{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Notifications returns a copy of the cached records, newest first.
func (s *State) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.records))
	copy(out, s.records)
	return out
}

// UnreadCount returns the cached unread badge count.
func (s *State) UnreadCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadCount
}

// Refresh replaces the cached records and badge count from the server.
func (s *State) Refresh(ctx context.Context, unreadOnly bool, limit int) error {
	payload, err := s.client.List(ctx, unreadOnly, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records = payload.Records
	s.unreadCount = payload.UnreadCount
	s.mu.Unlock()
	return nil
}

// RefreshCount updates only the badge count. The record list is untouched.
func (s *State) RefreshCount(ctx context.Context) error {
	count, err := s.client.UnreadCount(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.unreadCount = count
	s.mu.Unlock()
	return nil
}

// MarkRead marks one notification as read on the server, then flips the
// cached record and decrements the badge without a refetch.
func (s *State) MarkRead(ctx context.Context, id string) error {
	if err := s.client.MarkRead(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if !s.records[i].IsRead {
			s.records[i].IsRead = true
			readAt := s.now()
			s.records[i].ReadAt = &readAt
			s.decrementUnreadLocked()
		}
		break
	}
	return nil
}

// MarkAllRead marks everything read on the server and zeroes the badge.
func (s *State) MarkAllRead(ctx context.Context) error {
	if err := s.client.MarkAllRead(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	readAt := s.now()
	for i := range s.records {
		if !s.records[i].IsRead {
			s.records[i].IsRead = true
			s.records[i].ReadAt = &readAt
		}
	}
	s.unreadCount = 0
	return nil
}

// Delete removes a notification on the server and from the cache. Deleting
// an unread record also decrements the badge.
func (s *State) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if !s.records[i].IsRead {
			s.decrementUnreadLocked()
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		break
	}
	return nil
}

// Create posts a notification and prepends the stored record to the cache.
func (s *State) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	record, err := s.client.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records = append([]Notification{*record}, s.records...)
	s.unreadCount++
	s.mu.Unlock()
	return record, nil
}

func (s *State) decrementUnreadLocked() {
	if s.unreadCount > 0 {
		s.unreadCount--
	}
}
