package types

// PullRequestDescriptor describes one pull attempt. Constructed per attempt,
// never persisted standalone.
type PullRequestDescriptor struct {
	Runtime   Runtime       `json:"runtime"`
	ProjectID string        `json:"project_id,omitempty"`
	Scope     SnapshotScope `json:"scope"`
	Actor     Actor         `json:"actor"`
	Reason    string        `json:"reason"`
}

// VerdictKind is the closed set of gate outcomes
type VerdictKind string

const (
	VerdictAllowed          VerdictKind = "allowed"
	VerdictDenied           VerdictKind = "denied"
	VerdictApprovalRequired VerdictKind = "approval-required"
)

// Verdict is the gate's answer to a pull attempt
type Verdict struct {
	Kind              VerdictKind `json:"kind"`
	ApprovalRequestID string      `json:"approval_request_id,omitempty"`
	DenialReason      string      `json:"denial_reason,omitempty"`
	// Retryable distinguishes transient service failures from policy
	// denials so callers can offer retry only for the former
	Retryable bool `json:"retryable,omitempty"`
	// Warning surfaces non-fatal degradation (audit buffering) without
	// changing the decision
	Warning string `json:"warning,omitempty"`
}

// Allowed reports whether the pull may execute now
func (v Verdict) Allowed() bool {
	return v.Kind == VerdictAllowed
}

// RequiresApproval reports whether the pull is suspended pending a
// human decision
func (v Verdict) RequiresApproval() bool {
	return v.Kind == VerdictApprovalRequired
}
