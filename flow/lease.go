package flow

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRuntimeBusy marks a runtime with a pull already in flight
var ErrRuntimeBusy = errors.New("runtime has a pull in flight")

// Leases guarantees at most one in-flight pull per runtime id. Acquired at
// EXECUTE_PULL, released on the terminal state. Shared across all flow
// instances in the process.
type Leases struct {
	mu   sync.Mutex
	held map[string]string
}

// NewLeases creates an empty lease table
func NewLeases() *Leases {
	return &Leases{held: make(map[string]string)}
}

// Acquire takes the lease for runtimeID on behalf of holder
func (l *Leases) Acquire(runtimeID, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held[runtimeID]; ok && current != holder {
		return fmt.Errorf("%w: held by %s", ErrRuntimeBusy, current)
	}
	l.held[runtimeID] = holder
	return nil
}

// Release frees the lease if holder still owns it
func (l *Leases) Release(runtimeID, holder string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held[runtimeID]; ok && current == holder {
		delete(l.held, runtimeID)
	}
}

// Holder returns who holds the lease for runtimeID, if anyone
func (l *Leases) Holder(runtimeID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.held[runtimeID]
	return holder, ok
}
