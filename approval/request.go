// Package approval manages the lifecycle of pull approval requests: a
// pending request is decided by a human approver, cancelled by its owner, or
// expires after its TTL. All states other than pending are terminal.
package approval

import (
	"errors"
	"fmt"
	"time"

	"github.com/plcforge/pullgov/types"
)

// DefaultTTL is how long a request stays decidable after creation
const DefaultTTL = 24 * time.Hour

// TypePLCPull is the approval request type for runtime snapshot pulls
const TypePLCPull = "plc-pull"

// Status is the closed set of request states
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var (
	// ErrInvalidState marks a decision attempted on a non-pending request
	ErrInvalidState = errors.New("approval request is not pending")
	// ErrExpired marks a decision attempted past the request TTL
	ErrExpired = errors.New("approval request has expired")
	// ErrSelfApproval marks an approver deciding their own request
	ErrSelfApproval = errors.New("requester cannot decide their own request")
	// ErrNotRequestOwner marks a cancel by someone other than the requester
	ErrNotRequestOwner = errors.New("only the requester or an admin can cancel a request")
	// ErrSubmissionFailed marks a request that never reached the Approval Service
	ErrSubmissionFailed = errors.New("approval request submission failed")
	// ErrNotFound marks an unknown request id
	ErrNotFound = errors.New("approval request not found")
)

// Terminal reports whether the status admits no further transition
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Request is a time-boxed, human-decidable record gating a pull
type Request struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	RequestedBy types.Actor         `json:"requested_by"`
	RequestedAt time.Time           `json:"requested_at"`
	Runtime     types.Runtime       `json:"runtime"`
	ProjectID   string              `json:"project_id,omitempty"`
	Reason      string              `json:"reason"`
	Scope       types.SnapshotScope `json:"scope"`
	Status      Status              `json:"status"`

	ApprovedBy      string     `json:"approved_by,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
}

// CanTransitionTo checks the state machine rules: pending is the only
// non-terminal state and must not transition to itself
func (r *Request) CanTransitionTo(next Status) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: status is %s", ErrInvalidState, r.Status)
	}
	if next == StatusPending {
		return fmt.Errorf("%w: cannot re-enter pending", ErrInvalidState)
	}
	return nil
}

// IsExpired reports whether the request passed its TTL while still pending
func (r *Request) IsExpired(now time.Time) bool {
	return r.Status == StatusPending && now.After(r.ExpiresAt)
}

// Remaining returns the time left before expiry; ok is false once expired.
// Presentation helper, not a correctness primitive.
func (r *Request) Remaining(now time.Time) (time.Duration, bool) {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return left, true
}

// RemainingLabel renders the time left for display
func (r *Request) RemainingLabel(now time.Time) string {
	left, ok := r.Remaining(now)
	if !ok {
		return "Expired"
	}
	return left.Round(time.Minute).String()
}
