package clientstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Notification is the wire shape the API returns for a single record.
type Notification struct {
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

// ListPayload is the response of the notification list endpoint.
type ListPayload struct {
	Records     []Notification
	Total       int64
	UnreadCount int64
}

// CreateRequest is the body for creating a notification through the API.
type CreateRequest struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type,omitempty"`
	RelatedTask string `json:"relatedTask,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// TokenProvider supplies the bearer token attached to each request.
type TokenProvider func() string

// Client is a thin HTTP client for the notification API.
type Client struct {
	baseURL string
	token   TokenProvider
	http    *http.Client
}

// ClientOption customises the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a Client for the API rooted at baseURL
// (e.g. "http://localhost:8080/api").
func NewClient(baseURL string, token TokenProvider, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// apiError mirrors the server's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) text() string {
	if e == nil {
		return "unknown error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

type listEnvelope struct {
	Success     bool           `json:"success"`
	Count       int            `json:"count"`
	Total       int64          `json:"total"`
	UnreadCount int64          `json:"unreadCount"`
	Data        []Notification `json:"data"`
	Error       *apiError      `json:"error"`
}

type countEnvelope struct {
	Success bool      `json:"success"`
	Count   int64     `json:"count"`
	Error   *apiError `json:"error"`
}

type recordEnvelope struct {
	Success bool         `json:"success"`
	Data    Notification `json:"data"`
	Error   *apiError    `json:"error"`
}

type statusEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   *apiError `json:"error"`
}

// List fetches a page of notifications together with the unread badge count.
func (c *Client) List(ctx context.Context, unreadOnly bool, limit int) (*ListPayload, error) {
	query := url.Values{}
	query.Set("unreadOnly", strconv.FormatBool(unreadOnly))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var envelope listEnvelope
	if err := c.do(ctx, http.MethodGet, "/notifications?"+query.Encode(), nil, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("list notifications: %s", envelope.Error.text())
	}
	return &ListPayload{
		Records:     envelope.Data,
		Total:       envelope.Total,
		UnreadCount: envelope.UnreadCount,
	}, nil
}

// UnreadCount fetches only the unread badge count.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var envelope countEnvelope
	if err := c.do(ctx, http.MethodGet, "/notifications/count", nil, &envelope); err != nil {
		return 0, err
	}
	if !envelope.Success {
		return 0, fmt.Errorf("unread count: %s", envelope.Error.text())
	}
	return envelope.Count, nil
}

// Create posts a new notification and returns the stored record.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	var envelope recordEnvelope
	if err := c.do(ctx, http.MethodPost, "/notifications", req, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("create notification: %s", envelope.Error.text())
	}
	return &envelope.Data, nil
}

// MarkRead marks a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	var envelope recordEnvelope
	if err := c.do(ctx, http.MethodPut, "/notifications/"+id+"/read", nil, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("mark read: %s", envelope.Error.text())
	}
	return nil
}

// MarkAllRead marks every unread notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	var envelope statusEnvelope
	if err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("mark all read: %s", envelope.Error.text())
	}
	return nil
}

// Delete removes a notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	var envelope statusEnvelope
	if err := c.do(ctx, http.MethodDelete, "/notifications/"+id, nil, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("delete notification: %s", envelope.Error.text())
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: status %d: decode response: %w", method, path, resp.StatusCode, err)
	}
	return nil
}
