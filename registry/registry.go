// Package registry reads the runtime inventory from the Runtime Registry.
package registry

import (
	"context"
	"fmt"

	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/types"
)

// Client lists PLC runtimes
type Client struct {
	c *client.Client
}

// NewClient creates a Runtime Registry client
func NewClient(c *client.Client) *Client {
	return &Client{c: c}
}

// runtimeWire tolerates both registry payload variants: a full environment
// string or the older isProduction boolean.
type runtimeWire struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Environment  string `json:"environment"`
	IsProduction *bool  `json:"isProduction"`
	IPAddress    string `json:"ipAddress"`
	Status       string `json:"status"`
}

// List fetches all registered runtimes
func (c *Client) List(ctx context.Context) ([]types.Runtime, error) {
	var wire []runtimeWire
	if err := c.c.GetJSON(ctx, "/api/runtimes", nil, &wire); err != nil {
		return nil, fmt.Errorf("runtime registry list failed: %w", err)
	}

	runtimes := make([]types.Runtime, 0, len(wire))
	for _, w := range wire {
		rt, err := w.toRuntime()
		if err != nil {
			return nil, err
		}
		runtimes = append(runtimes, rt)
	}
	return runtimes, nil
}

// Get returns one runtime by id
func (c *Client) Get(ctx context.Context, id string) (types.Runtime, error) {
	runtimes, err := c.List(ctx)
	if err != nil {
		return types.Runtime{}, err
	}
	for _, rt := range runtimes {
		if rt.ID == id {
			return rt, nil
		}
	}
	return types.Runtime{}, fmt.Errorf("runtime %q not found", id)
}

func (w runtimeWire) toRuntime() (types.Runtime, error) {
	// The boolean variant only distinguishes production. Anything else is
	// treated as staging, the stricter of the remaining tiers.
	env := types.EnvStaging
	switch {
	case w.Environment != "":
		parsed, err := types.ParseEnvironment(w.Environment)
		if err != nil {
			return types.Runtime{}, fmt.Errorf("runtime %s: %w", w.ID, err)
		}
		env = parsed
	case w.IsProduction != nil && *w.IsProduction:
		env = types.EnvProduction
	}

	return types.Runtime{
		ID:          w.ID,
		Name:        w.Name,
		Environment: env,
		IPAddress:   w.IPAddress,
		Status:      w.Status,
	}, nil
}
