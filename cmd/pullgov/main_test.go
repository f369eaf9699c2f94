package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plcforge/pullgov/types"
)

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handleHealthz(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.SnapshotScope
		wantErr bool
	}{
		{
			name:  "all",
			input: "all",
			want:  types.FullScope(),
		},
		{
			name:  "subset",
			input: "tags,programs",
			want:  types.SnapshotScope{Tags: true, Programs: true},
		},
		{
			name:  "whitespace tolerated",
			input: " tags , routines ",
			want:  types.SnapshotScope{Tags: true, Routines: true},
		},
		{
			name:    "unknown class",
			input:   "tags,widgets",
			wantErr: true,
		},
		{
			name:    "empty selects nothing",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScope(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentActor_RequiresUserAndRole(t *testing.T) {
	t.Setenv("PULLGOV_USER", "")
	t.Setenv("PULLGOV_ROLE", "")
	actorUserID, actorRole, actorName = "", "", ""

	_, err := currentActor()
	require.Error(t, err)

	actorUserID = "U100"
	actorRole = "engineer"
	actor, err := currentActor()
	require.NoError(t, err)
	assert.Equal(t, types.RoleEngineer, actor.Role)
	assert.Equal(t, "U100", actor.Username) // falls back to user id

	actorUserID, actorRole = "", ""
}
