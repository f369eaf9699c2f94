// Package snapshot calls the Pull Execution Service to extract a
// configuration snapshot from a PLC runtime.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/telemetry"
	"github.com/plcforge/pullgov/types"
)

// DefaultTimeout bounds one pull execution client-side
const DefaultTimeout = 2 * time.Minute

// ErrExecutionFailed marks a downstream snapshot service error
var ErrExecutionFailed = errors.New("pull execution failed")

// Result is one completed snapshot pull
type Result struct {
	SnapshotID  string `json:"snapshot_id"`
	ItemsPulled int    `json:"items_pulled"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// Client executes snapshot pulls
type Client struct {
	c       *client.Client
	timeout time.Duration
	logger  *telemetry.Logger
}

// NewClient creates a pull execution client. timeout <= 0 uses the default.
func NewClient(c *client.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		c:       c,
		timeout: timeout,
		logger:  telemetry.NewLogger("pull-execution"),
	}
}

// Pull extracts a snapshot from the runtime. The call runs under the
// client-side timeout regardless of the parent context's deadline.
func (c *Client) Pull(ctx context.Context, runtimeID, projectID string, scope types.SnapshotScope) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := struct {
		ProjectID string              `json:"project_id,omitempty"`
		Scope     types.SnapshotScope `json:"scope"`
	}{ProjectID: projectID, Scope: scope}

	started := time.Now()
	var result Result
	if err := c.c.PostJSON(ctx, "/api/runtimes/"+runtimeID+"/snapshot", body, &result); err != nil {
		c.logger.LogServiceError(ctx, "pull-execution", "snapshot", err)
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	c.logger.WithContext(ctx).Info().
		Str("runtime_id", runtimeID).
		Str("snapshot_id", result.SnapshotID).
		Int("items_pulled", result.ItemsPulled).
		Dur("duration", time.Since(started)).
		Msg("snapshot pulled")
	return &result, nil
}
