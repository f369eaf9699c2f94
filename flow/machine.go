// Package flow drives the multi-step pull flow as an explicit finite-state
// machine. One Machine exists per active session, created by the caller and
// discarded with the flow; nothing here is process-global.
package flow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/plcforge/pullgov/snapshot"
	"github.com/plcforge/pullgov/types"
)

// State is the UI-visible flow state
type State string

const (
	StateIdle              State = "idle"
	StateSelectingRuntime  State = "selecting-runtime"
	StateSelectingScope    State = "selecting-scope"
	StateReviewingApproval State = "reviewing-approval"
	StateExecutingPull     State = "executing-pull"
	StateApprovalPending   State = "approval-pending"
	StateSuccess           State = "success"
	StateError             State = "error"
)

// Terminal reports whether the flow reached an outcome
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

// EventType identifies a flow event
type EventType string

const (
	EventStart            EventType = "START"
	EventRuntimeSelected  EventType = "RUNTIME_SELECTED"
	EventScopeSelected    EventType = "SCOPE_SELECTED"
	EventApprovalRequired EventType = "APPROVAL_REQUIRED"
	EventExecutePull      EventType = "EXECUTE_PULL"
	EventPullSuccess      EventType = "PULL_SUCCESS"
	EventPullError        EventType = "PULL_ERROR"
	EventReset            EventType = "RESET"
	EventCancel           EventType = "CANCEL"
)

// Event carries a transition and its payload
type Event struct {
	Type              EventType
	EntryPoint        string
	ProjectID         string
	Runtime           *types.Runtime
	Scope             *types.SnapshotScope
	ApprovalRequestID string
	Result            *snapshot.Result
	Error             string
}

// Context is the working data accumulated within one flow. It grows
// monotonically between transitions and resets atomically on RESET/CANCEL.
type Context struct {
	EntryPoint        string
	ProjectID         string
	Runtime           *types.Runtime
	Scope             *types.SnapshotScope
	ApprovalRequestID string
	SnapshotID        string
	ItemsPulled       int
	ProjectName       string
	ErrorMessage      string
}

var (
	// ErrInvalidTransition marks an event that the current state does not
	// accept. Out-of-order events are rejected instead of silently
	// corrupting context.
	ErrInvalidTransition = errors.New("event not valid in current state")
	// ErrReentrantSend marks a transition attempted from inside an
	// observer callback on the same machine
	ErrReentrantSend = errors.New("transition attempted during observer notification")
	// ErrMissingPayload marks an event without its required payload
	ErrMissingPayload = errors.New("event payload is missing")
)

// transitions is the accepted-event table. RESET and CANCEL are handled
// separately and are valid from any state.
var transitions = map[State]map[EventType]State{
	StateIdle: {
		EventStart: StateSelectingRuntime,
	},
	StateSelectingRuntime: {
		EventRuntimeSelected: StateSelectingScope,
	},
	StateSelectingScope: {
		EventScopeSelected: StateReviewingApproval,
	},
	StateReviewingApproval: {
		EventApprovalRequired: StateApprovalPending,
		EventExecutePull:      StateExecutingPull,
		EventPullError:        StateError,
	},
	StateApprovalPending: {
		EventExecutePull: StateExecutingPull,
		EventPullError:   StateError,
	},
	StateExecutingPull: {
		EventPullSuccess: StateSuccess,
		EventPullError:   StateError,
	},
}

type observer struct {
	token int
	fn    func(State, Context)
}

// Machine processes flow events one at a time in the order received
type Machine struct {
	mu         sync.Mutex
	state      State
	context    Context
	observers  []observer
	nextToken  int
	notifying  bool
	generation uint64
}

// NewMachine creates a machine in the idle state
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state and a copy of the context
func (m *Machine) State() (State, Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.context
}

// Generation increments on every RESET/CANCEL. Asynchronous results captured
// under an older generation must be discarded by their caller.
func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Subscribe registers an observer and returns its unsubscribe token.
// Observers are notified synchronously, in registration order, on every
// accepted transition.
func (m *Machine) Subscribe(fn func(State, Context)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	m.observers = append(m.observers, observer{token: m.nextToken, fn: fn})
	return m.nextToken
}

// Unsubscribe removes the observer registered under token
func (m *Machine) Unsubscribe(token int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.observers {
		if o.token == token {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// Send processes one event. Accepted transitions apply their context effect
// and notify observers before returning; rejected events leave state and
// context untouched. Observers must not Send on the same machine.
func (m *Machine) Send(ev Event) error {
	m.mu.Lock()
	if m.notifying {
		m.mu.Unlock()
		return ErrReentrantSend
	}

	if ev.Type == EventReset || ev.Type == EventCancel {
		m.state = StateIdle
		m.context = Context{}
		m.generation++
		m.notifyLocked()
		return nil
	}

	next, ok := transitions[m.state][ev.Type]
	if !ok {
		from := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.Type, from)
	}

	if err := m.applyEffect(ev); err != nil {
		m.mu.Unlock()
		return err
	}

	m.state = next
	m.notifyLocked()
	return nil
}

// applyEffect mutates context for an accepted event. Called with mu held.
func (m *Machine) applyEffect(ev Event) error {
	switch ev.Type {
	case EventStart:
		m.context.EntryPoint = ev.EntryPoint
		m.context.ProjectID = ev.ProjectID
	case EventRuntimeSelected:
		if ev.Runtime == nil {
			return fmt.Errorf("%w: runtime", ErrMissingPayload)
		}
		rt := *ev.Runtime
		m.context.Runtime = &rt
	case EventScopeSelected:
		if ev.Scope == nil {
			return fmt.Errorf("%w: scope", ErrMissingPayload)
		}
		scope := *ev.Scope
		m.context.Scope = &scope
	case EventApprovalRequired:
		if ev.ApprovalRequestID == "" {
			return fmt.Errorf("%w: approval request id", ErrMissingPayload)
		}
		m.context.ApprovalRequestID = ev.ApprovalRequestID
	case EventPullSuccess:
		if ev.Result == nil {
			return fmt.Errorf("%w: pull result", ErrMissingPayload)
		}
		m.context.SnapshotID = ev.Result.SnapshotID
		m.context.ItemsPulled = ev.Result.ItemsPulled
		m.context.ProjectName = ev.Result.ProjectName
		if ev.Result.ProjectID != "" {
			m.context.ProjectID = ev.Result.ProjectID
		}
	case EventPullError:
		m.context.ErrorMessage = ev.Error
	case EventExecutePull:
		// no context effect
	}
	return nil
}

// notifyLocked snapshots state and observers, releases mu for the duration
// of the callbacks, and restores the notifying guard. Called with mu held.
func (m *Machine) notifyLocked() {
	state, context := m.state, m.context
	observers := append([]observer(nil), m.observers...)
	m.notifying = true
	m.mu.Unlock()

	for _, o := range observers {
		o.fn(state, context)
	}

	m.mu.Lock()
	m.notifying = false
	m.mu.Unlock()
}
