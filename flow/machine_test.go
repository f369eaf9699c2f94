package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plcforge/pullgov/snapshot"
	"github.com/plcforge/pullgov/types"
)

func testRuntime() types.Runtime {
	return types.Runtime{
		ID:          "RT-1",
		Name:        "line-1-plc",
		Environment: types.EnvDevelopment,
		IPAddress:   "10.0.0.5",
		Status:      "online",
	}
}

func TestMachine_DirectPullPath(t *testing.T) {
	m := NewMachine()
	scope := types.SnapshotScope{Tags: true}

	require.NoError(t, m.Send(Event{Type: EventStart, EntryPoint: "runtime-card", ProjectID: "P1"}))
	rt := testRuntime()
	require.NoError(t, m.Send(Event{Type: EventRuntimeSelected, Runtime: &rt}))
	require.NoError(t, m.Send(Event{Type: EventScopeSelected, Scope: &scope}))
	require.NoError(t, m.Send(Event{Type: EventExecutePull}))
	require.NoError(t, m.Send(Event{Type: EventPullSuccess, Result: &snapshot.Result{
		SnapshotID:  "S1",
		ItemsPulled: 42,
		ProjectName: "press-line",
	}}))

	state, ctx := m.State()
	assert.Equal(t, StateSuccess, state)
	assert.True(t, state.Terminal())
	assert.Equal(t, "S1", ctx.SnapshotID)
	assert.Equal(t, 42, ctx.ItemsPulled)
	assert.Equal(t, "press-line", ctx.ProjectName)
	assert.Equal(t, "RT-1", ctx.Runtime.ID)
	assert.Equal(t, "P1", ctx.ProjectID)
}

func TestMachine_ApprovalPath(t *testing.T) {
	m := NewMachine()
	rt := testRuntime()
	rt.Environment = types.EnvProduction
	scope := types.FullScope()

	require.NoError(t, m.Send(Event{Type: EventStart}))
	require.NoError(t, m.Send(Event{Type: EventRuntimeSelected, Runtime: &rt}))
	require.NoError(t, m.Send(Event{Type: EventScopeSelected, Scope: &scope}))
	require.NoError(t, m.Send(Event{Type: EventApprovalRequired, ApprovalRequestID: "APR-1"}))

	state, ctx := m.State()
	assert.Equal(t, StateApprovalPending, state)
	assert.Equal(t, "APR-1", ctx.ApprovalRequestID)

	// Approval granted, flow resumes into execution
	require.NoError(t, m.Send(Event{Type: EventExecutePull}))
	state, _ = m.State()
	assert.Equal(t, StateExecutingPull, state)
}

func TestMachine_RejectsOutOfOrderEvents(t *testing.T) {
	rt := testRuntime()
	scope := types.SnapshotScope{Tags: true}

	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{
			name:  "scope before runtime",
			setup: []Event{{Type: EventStart}},
			event: Event{Type: EventScopeSelected, Scope: &scope},
		},
		{
			name:  "execute from idle",
			setup: nil,
			event: Event{Type: EventExecutePull},
		},
		{
			name: "success without execution",
			setup: []Event{
				{Type: EventStart},
				{Type: EventRuntimeSelected, Runtime: &rt},
			},
			event: Event{Type: EventPullSuccess, Result: &snapshot.Result{SnapshotID: "S1"}},
		},
		{
			name:  "start twice",
			setup: []Event{{Type: EventStart}},
			event: Event{Type: EventStart},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, ev := range tt.setup {
				require.NoError(t, m.Send(ev))
			}
			before, beforeCtx := m.State()

			err := m.Send(tt.event)
			require.ErrorIs(t, err, ErrInvalidTransition)

			after, afterCtx := m.State()
			assert.Equal(t, before, after)
			assert.Equal(t, beforeCtx, afterCtx)
		})
	}
}

func TestMachine_ResetFromAnyState(t *testing.T) {
	m := NewMachine()
	rt := testRuntime()
	scope := types.SnapshotScope{Tags: true}

	require.NoError(t, m.Send(Event{Type: EventStart, ProjectID: "P1"}))
	require.NoError(t, m.Send(Event{Type: EventRuntimeSelected, Runtime: &rt}))
	require.NoError(t, m.Send(Event{Type: EventScopeSelected, Scope: &scope}))
	require.NoError(t, m.Send(Event{Type: EventExecutePull}))

	genBefore := m.Generation()
	require.NoError(t, m.Send(Event{Type: EventReset}))

	state, ctx := m.State()
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, Context{}, ctx)
	assert.Equal(t, genBefore+1, m.Generation())
}

func TestMachine_MissingPayloadRejected(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Send(Event{Type: EventStart}))

	err := m.Send(Event{Type: EventRuntimeSelected})
	require.ErrorIs(t, err, ErrMissingPayload)

	state, _ := m.State()
	assert.Equal(t, StateSelectingRuntime, state)
}

func TestMachine_ObserversNotifiedInOrder(t *testing.T) {
	m := NewMachine()

	var order []string
	m.Subscribe(func(s State, _ Context) { order = append(order, "first:"+string(s)) })
	second := m.Subscribe(func(s State, _ Context) { order = append(order, "second:"+string(s)) })

	require.NoError(t, m.Send(Event{Type: EventStart}))
	require.Equal(t, []string{"first:selecting-runtime", "second:selecting-runtime"}, order)

	m.Unsubscribe(second)
	rt := testRuntime()
	require.NoError(t, m.Send(Event{Type: EventRuntimeSelected, Runtime: &rt}))
	assert.Equal(t, "first:selecting-scope", order[len(order)-1])
	assert.Len(t, order, 3)
}

func TestMachine_ObserverCannotSendReentrantly(t *testing.T) {
	m := NewMachine()

	var reentrantErr error
	m.Subscribe(func(State, Context) {
		reentrantErr = m.Send(Event{Type: EventReset})
	})

	require.NoError(t, m.Send(Event{Type: EventStart}))
	assert.ErrorIs(t, reentrantErr, ErrReentrantSend)

	state, _ := m.State()
	assert.Equal(t, StateSelectingRuntime, state)
}

func TestMachine_ErrorStateCapturesMessage(t *testing.T) {
	m := NewMachine()
	rt := testRuntime()
	scope := types.SnapshotScope{Tags: true}

	require.NoError(t, m.Send(Event{Type: EventStart}))
	require.NoError(t, m.Send(Event{Type: EventRuntimeSelected, Runtime: &rt}))
	require.NoError(t, m.Send(Event{Type: EventScopeSelected, Scope: &scope}))
	require.NoError(t, m.Send(Event{Type: EventPullError, Error: "role may not pull from production"}))

	state, ctx := m.State()
	assert.Equal(t, StateError, state)
	assert.True(t, state.Terminal())
	assert.Equal(t, "role may not pull from production", ctx.ErrorMessage)
}
