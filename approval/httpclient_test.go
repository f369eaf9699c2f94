package approval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plcforge/pullgov/client"
)

func TestHTTPService_SubmitSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approvals/requests", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"request_id":"APR-1-abcdefg"}`))
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))

	req := Request{ID: "APR-1-abcdefg", Type: TypePLCPull, Status: StatusPending}
	id, err := svc.Submit(context.Background(), req, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "APR-1-abcdefg", id)
	assert.Equal(t, "APR-1-abcdefg", gotKey)
	assert.Equal(t, req.ID, gotBody.ID)
}

func TestHTTPService_GetMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))
	_, err := svc.Get(context.Background(), "APR-absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPService_ApproveMapsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approvals/APR-1-abcdefg/approve", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))
	err := svc.Approve(context.Background(), "APR-1-abcdefg", Decision{ActorID: "u-adm"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestHTTPService_CancelSendsUserID(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approvals/APR-1-abcdefg/cancel", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))
	require.NoError(t, svc.Cancel(context.Background(), "APR-1-abcdefg", "u-eng"))
	assert.Equal(t, "u-eng", body["user_id"])
}

func TestHTTPService_ValidateDecodesWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approvals/APR-1-abcdefg/validate", r.URL.Path)
		assert.Equal(t, "R1", r.URL.Query().Get("runtime_id"))
		_, _ = w.Write([]byte(`{"approved":true,"expired":false}`))
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))
	result, err := svc.Validate(context.Background(), "APR-1-abcdefg", "R1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestHTTPService_ValidateExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"approved":true,"expired":true}`))
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))
	result, err := svc.Validate(context.Background(), "APR-1-abcdefg", "R1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "expired")
}

func TestHTTPService_PendingAndMyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/approvals/pending":
			_, _ = w.Write([]byte(`{"requests":[{"id":"APR-1-aaaaaaa","status":"pending"}]}`))
		case "/approvals/my-requests":
			assert.Equal(t, "u-eng", r.URL.Query().Get("user_id"))
			_, _ = w.Write([]byte(`{"requests":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc := NewHTTPService(client.New(srv.URL, client.Options{}))

	pending, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, StatusPending, pending[0].Status)

	mine, err := svc.MyRequests(context.Background(), "u-eng")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
