package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/types"
)

func newTestClient(t *testing.T, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runtimes", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(client.New(srv.URL, client.Options{}))
}

func TestList_EnvironmentVariant(t *testing.T) {
	c := newTestClient(t, `[
		{"id":"R1","name":"line-1","environment":"production","ipAddress":"10.0.0.5","status":"online"},
		{"id":"R3","name":"bench","environment":"development","ipAddress":"10.0.0.9","status":"online"}
	]`)

	runtimes, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runtimes, 2)
	assert.Equal(t, types.EnvProduction, runtimes[0].Environment)
	assert.Equal(t, "10.0.0.5", runtimes[0].IPAddress)
	assert.Equal(t, types.EnvDevelopment, runtimes[1].Environment)
}

func TestList_IsProductionVariant(t *testing.T) {
	c := newTestClient(t, `[
		{"id":"R1","name":"line-1","isProduction":true,"ipAddress":"10.0.0.5","status":"online"},
		{"id":"R2","name":"bench","isProduction":false,"ipAddress":"10.0.0.9","status":"offline"}
	]`)

	runtimes, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runtimes, 2)
	assert.Equal(t, types.EnvProduction, runtimes[0].Environment)
	assert.Equal(t, types.EnvStaging, runtimes[1].Environment)
}

func TestList_RejectsUnknownEnvironment(t *testing.T) {
	c := newTestClient(t, `[{"id":"R1","environment":"qa"}]`)
	_, err := c.List(context.Background())
	require.Error(t, err)
}

func TestGet(t *testing.T) {
	c := newTestClient(t, `[{"id":"R1","name":"line-1","environment":"staging"}]`)

	rt, err := c.Get(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "line-1", rt.Name)

	_, err = c.Get(context.Background(), "R9")
	assert.Error(t, err)
}
