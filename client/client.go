// Package client holds the shared HTTP plumbing for the remote governance
// collaborators: bearer credentials, JSON encoding, status mapping, and the
// retry/breaker builders layered on top by the service clients.
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
)

// TokenSource supplies the bearer credential attached to outbound calls.
// Token acquisition mechanics are owned by the session provider; an empty
// token means the call goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed credential
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// StatusError is a non-2xx response from a collaborator
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return false
	}
	return se.Code == code
}

// Options configure a Client
type Options struct {
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
	Header     http.Header
}

// Client is a thin JSON client bound to one collaborator base URL
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	header  http.Header
}

// New creates a client for the given base URL
func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		tokens:  opts.Tokens,
		header:  opts.Header,
	}
}

// GetJSON performs a GET and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, nil, out)
}

// PostJSON performs a POST with a JSON body and decodes the response into out.
// out may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, nil, body, out)
}

// PostJSONHeader is PostJSON with extra per-call headers (idempotency keys)
func (c *Client) PostJSONHeader(ctx context.Context, path string, header http.Header, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, header, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
