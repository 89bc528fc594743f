// Package backend is the HTTP client of the GoodFit backend: the auth contract
// (one-time codes, sessions, auth state events) and the data API.
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
	"sync"
	"time"

	"goodfit/internal/model"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrTransport    = errors.New("transport failure")
	ErrNoSession    = errors.New("no active session")
)

// APIError is a non-2xx response. Message is the backend's own error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend responded %d", e.Status)
}

// Unwrap maps the status to a sentinel for errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return ErrBadRequest
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

// Message returns the backend's text for an API error, or err's text otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// AuthListener receives auth state changes. session is nil after sign-out.
type AuthListener func(event model.AuthEvent, session *model.AuthSession)

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	storage SessionStorage

	mu        sync.RWMutex
	session   *model.AuthSession
	listeners map[int]AuthListener
	nextID    int
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout bounds every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionStorage persists the session across process restarts.
func WithSessionStorage(s SessionStorage) Option {
	return func(c *Client) { c.storage = s }
}

// New creates a client for baseURL. timeout bounds each request.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
		storage:   &MemoryStorage{},
		listeners: map[int]AuthListener{},
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := c.storage.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored session: %w", err)
	}
	c.session = session
	return c, nil
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// do sends one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// UploadObject PUTs r to a presigned storage URL.
func (c *Client) UploadObject(ctx context.Context, uploadURL, contentType string, r io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, r)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: upload: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: "upload rejected by storage"}
	}
	return nil
}
