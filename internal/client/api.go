// Package client talks to the chat API: submission, status polling and the
// client-side conversation state built on top of them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

// APIError is a non-2xx response from the chat API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("chat api http %d", e.StatusCode)
}

type Client struct {
	base  string
	http  *http.Client
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithAdminToken sets the bearer token sent on admin calls.
func WithAdminToken(tok string) Option { return func(c *Client) { c.token = tok } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type submitBody struct {
	Messages    []model.Message   `json:"messages"`
	CompanyInfo model.CompanyInfo `json:"companyInfo"`
}

// Submit posts one chat turn and returns the job id.
func (c *Client) Submit(ctx context.Context, messages []model.Message, info model.CompanyInfo) (string, error) {
	b, err := json.Marshal(submitBody{Messages: messages, CompanyInfo: info})
	if err != nil {
		return "", err
	}
	var out struct {
		ID        string `json:"id"`
		RequestID string `json:"requestId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(b), false, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		out.ID = out.RequestID
	}
	if out.ID == "" {
		return "", fmt.Errorf("chat api returned no job id")
	}
	return out.ID, nil
}

// Status fetches the current job record.
func (c *Client) Status(ctx context.Context, id string) (*model.ChatJob, error) {
	var job model.ChatJob
	if err := c.do(ctx, http.MethodGet, "/api/chat?id="+url.QueryEscape(id), nil, false, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

type QueueInfo struct {
	Backend string `json:"backend"`
	Pending int64  `json:"pending"`
}

func (c *Client) AdminQueue(ctx context.Context) (QueueInfo, error) {
	var q QueueInfo
	err := c.do(ctx, http.MethodGet, "/api/admin/queue", nil, true, &q)
	return q, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, admin bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chat api response: %w", err)
	}
	return nil
}
