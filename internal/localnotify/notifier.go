package localnotify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request describes an OS-level notification to schedule. A zero FireAt means
// deliver immediately.
type Request struct {
	Title  string
	Body   string
	FireAt time.Time

	// Data tags the notification so it can later be found and cancelled.
	// The "taskId" key carries the owning task.
	Data map[string]string
}

// Scheduled is a pending OS-level notification.
type Scheduled struct {
	ID     string
	FireAt time.Time
	Data   map[string]string
}

// TaskID returns the owning task tag, if any.
func (s Scheduled) TaskID() string {
	return s.Data["taskId"]
}

// Notifier abstracts the platform notification facility. Implementations
// bridge to whatever the host OS offers; tests use the in-memory one.
type Notifier interface {
	// Schedule registers a notification and returns its identifier.
	Schedule(ctx context.Context, req Request) (string, error)

	// Cancel removes a pending notification. Cancelling an unknown or
	// already-delivered identifier is not an error.
	Cancel(ctx context.Context, id string) error

	// Pending lists every notification that has not fired yet.
	Pending(ctx context.Context) ([]Scheduled, error)
}

// MemoryNotifier is an in-process Notifier. Besides backing tests it serves
// as the delivery target on platforms without a native bridge.
type MemoryNotifier struct {
	mu        sync.Mutex
	pending   map[string]Scheduled
	delivered []Scheduled
	now       func() time.Time
}

// NewMemoryNotifier constructs an empty MemoryNotifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		pending: make(map[string]Scheduled),
		now:     time.Now,
	}
}

// Schedule implements Notifier. Immediate requests are recorded as delivered.
func (m *MemoryNotifier) Schedule(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Scheduled{
		ID:     uuid.NewString(),
		FireAt: req.FireAt,
		Data:   req.Data,
	}
	if req.FireAt.IsZero() || !req.FireAt.After(m.now()) {
		m.delivered = append(m.delivered, entry)
		return entry.ID, nil
	}
	m.pending[entry.ID] = entry
	return entry.ID, nil
}

// Cancel implements Notifier.
func (m *MemoryNotifier) Cancel(_ context.Context, id string) error {
	if id == "" {
		return errors.New("memory notifier: empty identifier")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	return nil
}

// Pending implements Notifier.
func (m *MemoryNotifier) Pending(_ context.Context) ([]Scheduled, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Scheduled, 0, len(m.pending))
	for _, entry := range m.pending {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// Delivered returns notifications that fired immediately, oldest first.
func (m *MemoryNotifier) Delivered() []Scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Scheduled, len(m.delivered))
	copy(out, m.delivered)
	return out
}
