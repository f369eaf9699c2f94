package audit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/plcforge/pullgov/client"
)

// HTTPService talks to the remote Audit Service
type HTTPService struct {
	c *client.Client
}

// NewHTTPService creates an Audit Service client
func NewHTTPService(c *client.Client) *HTTPService {
	return &HTTPService{c: c}
}

// Write appends one entry
func (s *HTTPService) Write(ctx context.Context, e Entry) error {
	if err := s.c.PostJSON(ctx, "/audit/plc-pull", e, nil); err != nil {
		return fmt.Errorf("audit write failed: %w", err)
	}
	return nil
}

// Query fetches entries matching the filter
func (s *HTTPService) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.RuntimeID != "" {
		q.Set("runtime_id", f.RuntimeID)
	}
	if f.Action != "" {
		q.Set("action", string(f.Action))
	}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.UTC().Format(time.RFC3339))
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var resp struct {
		Entries []Entry `json:"entries"`
	}
	if err := s.c.GetJSON(ctx, "/audit/plc-pull", q, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Integrity fetches the chain verification report
func (s *HTTPService) Integrity(ctx context.Context) (IntegrityReport, error) {
	var report IntegrityReport
	if err := s.c.GetJSON(ctx, "/audit/integrity", nil, &report); err != nil {
		return IntegrityReport{}, err
	}
	return report, nil
}

// Stats fetches the aggregate view
func (s *HTTPService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.c.GetJSON(ctx, "/audit/stats", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
