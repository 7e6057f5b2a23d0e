package clientstate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t *testing.T

	records     []Notification
	unreadCount int64
	countCalls  atomic.Int64
	failCount   atomic.Bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"count":       len(f.records),
			"total":       len(f.records),
			"unreadCount": f.unreadCount,
			"data":        f.records,
		})
	})

	mux.HandleFunc("GET /api/notifications/count", func(w http.ResponseWriter, r *http.Request) {
		f.countCalls.Add(1)
		if f.failCount.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   map[string]string{"code": "internal_server_error", "message": "boom"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": f.unreadCount})
	})

	mux.HandleFunc("PUT /api/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All notifications marked as read"})
	})

	mux.HandleFunc("PUT /api/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": f.records[0]})
	})

	mux.HandleFunc("DELETE /api/notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Notification deleted"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestState(t *testing.T, api *fakeAPI) *State {
	t.Helper()
	api.t = t
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/api", func() string { return "test-token" })
	return NewState(client)
}

func TestClientSurfacesServerErrorMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   map[string]string{"code": "not_found", "message": "Resource not found"},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/api", func() string { return "test-token" })
	err := client.MarkRead(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resource not found")
}

func TestStateRefresh(t *testing.T) {
	api := &fakeAPI{
		records: []Notification{
			{ID: "n1", Title: "Due Soon!", IsRead: false},
			{ID: "n2", Title: "Upcoming Deadline", IsRead: true},
		},
		unreadCount: 1,
	}
	state := newTestState(t, api)

	require.NoError(t, state.Refresh(context.Background(), false, 20))
	assert.Len(t, state.Notifications(), 2)
	assert.EqualValues(t, 1, state.UnreadCount())
}

func TestStateMarkReadAdjustsLocally(t *testing.T) {
	api := &fakeAPI{
		records:     []Notification{{ID: "n1", IsRead: false}},
		unreadCount: 1,
	}
	state := newTestState(t, api)
	ctx := context.Background()

	require.NoError(t, state.Refresh(ctx, false, 0))
	require.NoError(t, state.MarkRead(ctx, "n1"))

	records := state.Notifications()
	require.Len(t, records, 1)
	assert.True(t, records[0].IsRead)
	assert.NotNil(t, records[0].ReadAt)
	assert.EqualValues(t, 0, state.UnreadCount())

	// A second mark of the same record must not drive the badge negative.
	require.NoError(t, state.MarkRead(ctx, "n1"))
	assert.EqualValues(t, 0, state.UnreadCount())
}

func TestStateMarkAllRead(t *testing.T) {
	api := &fakeAPI{
		records: []Notification{
			{ID: "n1", IsRead: false},
			{ID: "n2", IsRead: false},
			{ID: "n3", IsRead: true},
		},
		unreadCount: 2,
	}
	state := newTestState(t, api)
	ctx := context.Background()

	require.NoError(t, state.Refresh(ctx, false, 0))
	require.NoError(t, state.MarkAllRead(ctx))

	assert.EqualValues(t, 0, state.UnreadCount())
	for _, record := range state.Notifications() {
		assert.True(t, record.IsRead)
	}
}

func TestStateDelete(t *testing.T) {
	api := &fakeAPI{
		records: []Notification{
			{ID: "n1", IsRead: false},
			{ID: "n2", IsRead: true},
		},
		unreadCount: 1,
	}
	state := newTestState(t, api)
	ctx := context.Background()

	require.NoError(t, state.Refresh(ctx, false, 0))

	// Deleting a read record leaves the badge alone.
	require.NoError(t, state.Delete(ctx, "n2"))
	assert.EqualValues(t, 1, state.UnreadCount())

	// Deleting an unread record decrements it.
	require.NoError(t, state.Delete(ctx, "n1"))
	assert.EqualValues(t, 0, state.UnreadCount())
	assert.Empty(t, state.Notifications())
}

func TestStateRefreshFailureKeepsState(t *testing.T) {
	api := &fakeAPI{unreadCount: 3}
	state := newTestState(t, api)
	ctx := context.Background()

	require.NoError(t, state.RefreshCount(ctx))
	assert.EqualValues(t, 3, state.UnreadCount())

	api.failCount.Store(true)
	assert.Error(t, state.RefreshCount(ctx))
	assert.EqualValues(t, 3, state.UnreadCount())
}

func TestPollerRefreshesCount(t *testing.T) {
	api := &fakeAPI{unreadCount: 2}
	state := newTestState(t, api)

	poller := NewPoller(state, 20*time.Millisecond)
	poller.Start()
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return api.countCalls.Load() >= 2 && state.UnreadCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	poller.Stop()
	calls := api.countCalls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, api.countCalls.Load())
}
