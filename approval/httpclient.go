package approval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/plcforge/pullgov/client"
)

// HTTPService talks to the remote Approval Service
type HTTPService struct {
	c *client.Client
}

// NewHTTPService creates an Approval Service client
func NewHTTPService(c *client.Client) *HTTPService {
	return &HTTPService{c: c}
}

// Submit persists a new request. The idempotency key makes retried
// submissions safe against duplicate creation.
func (s *HTTPService) Submit(ctx context.Context, req Request, idempotencyKey string) (string, error) {
	var resp struct {
		RequestID string `json:"request_id"`
	}
	header := http.Header{"Idempotency-Key": {idempotencyKey}}
	if err := s.c.PostJSONHeader(ctx, "/approvals/requests", header, req, &resp); err != nil {
		return "", fmt.Errorf("submit failed: %w", err)
	}
	return resp.RequestID, nil
}

// Get fetches one request by id
func (s *HTTPService) Get(ctx context.Context, id string) (Request, error) {
	var req Request
	if err := s.c.GetJSON(ctx, "/approvals/"+url.PathEscape(id), nil, &req); err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Request{}, err
	}
	return req, nil
}

// Pending lists requests awaiting decision
func (s *HTTPService) Pending(ctx context.Context) ([]Request, error) {
	var resp struct {
		Requests []Request `json:"requests"`
	}
	if err := s.c.GetJSON(ctx, "/approvals/pending", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// MyRequests lists requests raised by the given user
func (s *HTTPService) MyRequests(ctx context.Context, userID string) ([]Request, error) {
	var resp struct {
		Requests []Request `json:"requests"`
	}
	q := url.Values{"user_id": {userID}}
	if err := s.c.GetJSON(ctx, "/approvals/my-requests", q, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// Approve posts an approve decision
func (s *HTTPService) Approve(ctx context.Context, id string, d Decision) error {
	return s.decide(ctx, id, "approve", d)
}

// Reject posts a reject decision
func (s *HTTPService) Reject(ctx context.Context, id string, d Decision) error {
	return s.decide(ctx, id, "reject", d)
}

func (s *HTTPService) decide(ctx context.Context, id, verb string, d Decision) error {
	err := s.c.PostJSON(ctx, "/approvals/"+url.PathEscape(id)+"/"+verb, d, nil)
	switch {
	case err == nil:
		return nil
	case client.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case client.IsStatus(err, http.StatusConflict):
		return fmt.Errorf("%w: decided concurrently", ErrInvalidState)
	case client.IsStatus(err, http.StatusGone):
		return fmt.Errorf("%w: during %s", ErrExpired, verb)
	default:
		return err
	}
}

// Cancel posts a cancellation by the given user
func (s *HTTPService) Cancel(ctx context.Context, id, userID string) error {
	body := map[string]string{"user_id": userID}
	if err := s.c.PostJSON(ctx, "/approvals/"+url.PathEscape(id)+"/cancel", body, nil); err != nil {
		if client.IsStatus(err, http.StatusConflict) {
			return fmt.Errorf("%w: decided concurrently", ErrInvalidState)
		}
		return err
	}
	return nil
}

// Validate performs the pre-execution re-check server-side
func (s *HTTPService) Validate(ctx context.Context, id, runtimeID string) (ValidationResult, error) {
	var resp struct {
		Approved bool   `json:"approved"`
		Expired  bool   `json:"expired"`
		Reason   string `json:"reason"`
	}
	q := url.Values{"runtime_id": {runtimeID}}
	if err := s.c.GetJSON(ctx, "/approvals/"+url.PathEscape(id)+"/validate", q, &resp); err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{Valid: resp.Approved && !resp.Expired, Reason: resp.Reason}
	if !result.Valid && result.Reason == "" {
		switch {
		case resp.Expired:
			result.Reason = "approval has expired"
		default:
			result.Reason = "request is not approved"
		}
	}
	return result, nil
}
