// Package audit records every governance decision. Writes go to the remote
// Audit Service; when that fails they land in a bounded local spool and are
// replayed later. Entries are immutable once created and are never deleted
// client-side; ordering authority is the server-assigned sequence.
package audit

import (
	"time"

	"github.com/plcforge/pullgov/types"
)

// Action is the closed enum of governance events
type Action string

const (
	ActionPullInitiated            Action = "pull-initiated"
	ActionPullCompleted            Action = "pull-completed"
	ActionPullFailed               Action = "pull-failed"
	ActionPermissionDenied         Action = "permission-denied"
	ActionApprovalRequested        Action = "approval-requested"
	ActionApprovalGranted          Action = "approval-granted"
	ActionApprovalRejected         Action = "approval-rejected"
	ActionApprovalCancelled        Action = "approval-cancelled"
	ActionApprovalExpired          Action = "approval-expired"
	ActionApprovalValidationFailed Action = "approval-validation-failed"
)

// Severity classifies an audit entry
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Entry is one immutable governance record
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Severity  Severity  `json:"severity"`

	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Role     types.Role `json:"role"`

	RuntimeID   string            `json:"runtime_id,omitempty"`
	RuntimeName string            `json:"runtime_name,omitempty"`
	Environment types.Environment `json:"environment,omitempty"`

	ApprovalRequestID string `json:"approval_request_id,omitempty"`
	SnapshotID        string `json:"snapshot_id,omitempty"`
	BaselineID        string `json:"baseline_id,omitempty"`
	DraftID           string `json:"draft_id,omitempty"`

	Details      map[string]string `json:"details,omitempty"`
	Success      bool              `json:"success"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// NewEntry stamps id and timestamp for a governance event by the given actor
func NewEntry(action Action, severity Severity, actor types.Actor) Entry {
	return Entry{
		ID:        types.NewAuditID(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Severity:  severity,
		UserID:    actor.UserID,
		Username:  actor.Username,
		Role:      actor.Role,
		Success:   true,
	}
}

// WithRuntime attaches runtime fields to the entry
func (e Entry) WithRuntime(rt types.Runtime) Entry {
	e.RuntimeID = rt.ID
	e.RuntimeName = rt.Name
	e.Environment = rt.Environment
	return e
}

// Filter selects audit entries on query
type Filter struct {
	UserID    string
	RuntimeID string
	Action    Action
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// IntegrityReport surfaces chain verification computed by the Audit Service.
// A verification failure is informational; it never retroactively alters an
// already-rendered decision.
type IntegrityReport struct {
	Valid         bool     `json:"valid"`
	VerifiedCount int      `json:"verified_entries"`
	TotalCount    int      `json:"total_entries"`
	Errors        []string `json:"errors"`
}

// Stats is the aggregate view served by the Audit Service
type Stats struct {
	TotalEntries int64            `json:"total_entries"`
	ByAction     map[string]int64 `json:"by_action,omitempty"`
	BySeverity   map[string]int64 `json:"by_severity,omitempty"`
	FailureCount int64            `json:"failure_count"`
}
