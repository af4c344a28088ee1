// Package taskapi is the HTTP client for the task service's /tasks API.
package taskapi

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

	"github.com/unkn0wn-root/querycache/tasks"
)

const maxBody = 8 << 20

// Config holds task service connection settings
type Config struct {
	BaseURL    string // e.g. http://localhost:8080/api
	Token      string // optional bearer token
	Timeout    time.Duration
	MaxRetries int           // retries on 429 and 503; 0 = none
	RetryDelay time.Duration // 0 => 500ms; Retry-After wins when present
	HTTPClient *http.Client  // overrides Timeout when set
}

// Client implements tasks.API over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	base string
}

var _ tasks.API = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("taskapi: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("taskapi: invalid base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Client{cfg: cfg, http: hc, base: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) ListTasks(ctx context.Context, page, limit int) (tasks.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.do(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil)
	if err != nil {
		return tasks.Page{}, err
	}
	var r listResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return tasks.Page{}, fmt.Errorf("decode task list: %w", err)
	}
	return r.toPage(), nil
}

func (c *Client) GetTask(ctx context.Context, id string) (tasks.Task, error) {
	body, err := c.do(ctx, http.MethodGet, taskPath(id), nil)
	if err != nil {
		return tasks.Task{}, err
	}
	return decodeTask(body)
}

func (c *Client) CreateTask(ctx context.Context, f tasks.FormData) (tasks.Task, error) {
	body, err := c.do(ctx, http.MethodPost, "/tasks", f)
	if err != nil {
		return tasks.Task{}, err
	}
	return decodeTask(body)
}

func (c *Client) UpdateTask(ctx context.Context, id string, p tasks.Patch) (tasks.Task, error) {
	body, err := c.do(ctx, http.MethodPatch, taskPath(id), p)
	if err != nil {
		return tasks.Task{}, err
	}
	return decodeTask(body)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, taskPath(id), nil)
	return err
}

func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (tasks.Task, error) {
	body, err := c.do(ctx, http.MethodPatch, taskPath(id)+"/complete", map[string]bool{"completed": completed})
	if err != nil {
		return tasks.Task{}, err
	}
	return decodeTask(body)
}

func taskPath(id string) string { return "/tasks/" + url.PathEscape(id) }

// do performs a request, retrying 429 and 503 responses, and returns the
// body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: err}
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, &TransportError{Method: method, Path: path, Err: readErr}
		}
		if len(body) > maxBody {
			return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBody)}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		if retryable(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			if err := sleep(ctx, c.retryDelay(resp)); err != nil {
				return nil, &TransportError{Method: method, Path: path, Err: err}
			}
			continue
		}
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: message(body)}
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

func (c *Client) retryDelay(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return c.cfg.RetryDelay
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// message pulls a human-readable error out of a response body.
func message(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &m) == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 || strings.HasPrefix(s, "<") || strings.HasPrefix(s, "{") {
		return ""
	}
	return s
}
