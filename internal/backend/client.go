// Package backend is the REST client for the learning platform API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("backend: not found")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d: %s", e.StatusCode, e.Body)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. Every request made
// with that context carries it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached to ctx, if any.
func TokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Token is used when the request context carries none.
	Token string
}

// Client talks to the learning platform API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Chat calls the primary conversational endpoint. An empty
// req.ConversationID starts a new conversation.
func (c *Client) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/api/ai/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations returns the user's conversation summaries.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	var out []model.ConversationSummary
	q := url.Values{"userId": {userID}}
	if err := c.do(ctx, "list_conversations", http.MethodGet, "/api/ai/conversations", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns a conversation's messages in order.
func (c *Client) History(ctx context.Context, conversationID, userID string) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	q := url.Values{"userId": {userID}}
	path := "/api/ai/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, "history", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RenameConversation sets a conversation's display name.
func (c *Client) RenameConversation(ctx context.Context, conversationID, userID, name string) (bool, error) {
	var ok bool
	q := url.Values{"userId": {userID}}
	path := "/api/ai/conversations/" + url.PathEscape(conversationID) + "/name"
	body := &model.RenameConversationRequest{Name: name}
	if err := c.do(ctx, "rename_conversation", http.MethodPut, path, q, body, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	q := url.Values{"userId": {userID}}
	path := "/api/ai/conversations/" + url.PathEscape(conversationID)
	if err := c.do(ctx, "delete_conversation", http.MethodDelete, path, q, nil, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

// Complete calls the stateless completion endpoint. The reply may be a JSON
// string or an object with a text/content field.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "complete", http.MethodPost, "/api/ai/complete", nil, &completeRequest{Prompt: prompt}, &raw); err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj completeResponse
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Text != "" {
			return obj.Text, nil
		}
		return obj.Content, nil
	}
	return string(raw), nil
}

type generateCourseRequest struct {
	UserID string   `json:"userId"`
	Prompt string   `json:"prompt"`
	Skills []string `json:"skills"`
}

// GenerateCourse asks for a course on prompt and returns the raw reply for
// normalization.
func (c *Client) GenerateCourse(ctx context.Context, userID, prompt string, skills []string) (json.RawMessage, error) {
	if skills == nil {
		skills = []string{}
	}
	var raw json.RawMessage
	body := &generateCourseRequest{UserID: userID, Prompt: prompt, Skills: skills}
	if err := c.do(ctx, "generate_course", http.MethodPost, "/api/ai/courses/generate", nil, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type confirmCourseRequest struct {
	UserID string `json:"userId"`
}

// ConfirmCourse persists the user's last generated course.
func (c *Client) ConfirmCourse(ctx context.Context, userID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "confirm_course", http.MethodPost, "/api/ai/courses/confirm", nil, &confirmCourseRequest{UserID: userID}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, in, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordBackendCall(endpoint, status, time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := TokenFrom(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("backend: %s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", endpoint, err)
	}
	return nil
}
