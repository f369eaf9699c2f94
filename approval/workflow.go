package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/plcforge/pullgov/audit"
	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/telemetry"
	"github.com/plcforge/pullgov/types"
)

// Decision carries who decided a request and why
type Decision struct {
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Reason    string    `json:"reason,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ValidationResult is the pre-execution re-check outcome
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Service is the remote Approval Service surface
type Service interface {
	Submit(ctx context.Context, req Request, idempotencyKey string) (string, error)
	Get(ctx context.Context, id string) (Request, error)
	Pending(ctx context.Context) ([]Request, error)
	MyRequests(ctx context.Context, userID string) ([]Request, error)
	Approve(ctx context.Context, id string, d Decision) error
	Reject(ctx context.Context, id string, d Decision) error
	Cancel(ctx context.Context, id, userID string) error
	Validate(ctx context.Context, id, runtimeID string) (ValidationResult, error)
}

// Recorder writes governance audit entries. Satisfied by *audit.Trail.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Workflow drives approval request lifecycles against the remote service.
// State invariants (pending-only decisions, no self-approval, requester-only
// cancel) are checked here before the call goes out; the service re-checks
// them authoritatively.
type Workflow struct {
	svc     Service
	trail   Recorder
	ttl     time.Duration
	now     func() time.Time
	logger  *telemetry.Logger
	tracer  trace.Tracer
	metrics *telemetry.GovernanceMetrics
}

// WorkflowOptions configure a Workflow
type WorkflowOptions struct {
	// TTL defaults to DefaultTTL
	TTL time.Duration
	// Now defaults to time.Now; injectable for expiry tests
	Now     func() time.Time
	Trail   Recorder
	Metrics *telemetry.GovernanceMetrics
}

// NewWorkflow creates a workflow over the given Approval Service
func NewWorkflow(svc Service, opts WorkflowOptions) *Workflow {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Workflow{
		svc:     svc,
		trail:   opts.Trail,
		ttl:     ttl,
		now:     now,
		logger:  telemetry.NewLogger("approval-workflow"),
		tracer:  otel.Tracer("pullgov/approval"),
		metrics: opts.Metrics,
	}
}

// Create builds a new pending request. Pure: stamps id, requestedAt and
// expiresAt, performs no I/O.
func (w *Workflow) Create(reqType string, requestedBy types.Actor, runtime types.Runtime, reason string, scope types.SnapshotScope, projectID string) Request {
	now := w.now().UTC()
	return Request{
		ID:          types.NewApprovalID(),
		Type:        reqType,
		RequestedBy: requestedBy,
		RequestedAt: now,
		Runtime:     runtime,
		ProjectID:   projectID,
		Reason:      reason,
		Scope:       scope,
		Status:      StatusPending,
		ExpiresAt:   now.Add(w.ttl),
	}
}

// Submit persists the request to the Approval Service and returns its id.
// The request id doubles as the idempotency key, so bounded retries cannot
// create duplicate requests.
func (w *Workflow) Submit(ctx context.Context, req Request) (string, error) {
	ctx, span := w.tracer.Start(ctx, "approval.submit")
	defer span.End()

	var requestID string
	err := client.Retry(ctx, 3, func() error {
		var submitErr error
		requestID, submitErr = w.svc.Submit(ctx, req, req.ID)
		return submitErr
	})
	if err != nil {
		w.logger.LogServiceError(ctx, "approval", "submit", err)
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	w.metrics.RecordApprovalRequested(ctx, string(req.Runtime.Environment))
	w.logger.WithContext(ctx).Info().
		Str("request_id", requestID).
		Str("runtime_id", req.Runtime.ID).
		Str("requested_by", req.RequestedBy.UserID).
		Msg("approval request submitted")
	return requestID, nil
}

// Get fetches one request by id
func (w *Workflow) Get(ctx context.Context, id string) (Request, error) {
	return w.svc.Get(ctx, id)
}

// Pending lists requests awaiting decision
func (w *Workflow) Pending(ctx context.Context) ([]Request, error) {
	return w.svc.Pending(ctx)
}

// MyRequests lists requests raised by the given user
func (w *Workflow) MyRequests(ctx context.Context, userID string) ([]Request, error) {
	return w.svc.MyRequests(ctx, userID)
}

// Approve transitions pending -> approved. Fails with ErrExpired past the
// TTL, ErrInvalidState on a terminal request, and ErrSelfApproval when the
// approver raised the request.
func (w *Workflow) Approve(ctx context.Context, id string, approver types.Actor, notes string) error {
	ctx, span := w.tracer.Start(ctx, "approval.approve")
	defer span.End()

	req, err := w.guardDecision(ctx, id, approver)
	if err != nil {
		return err
	}

	d := Decision{
		ActorID:   approver.UserID,
		ActorName: approver.Username,
		Notes:     notes,
		DecidedAt: w.now().UTC(),
	}
	if err := w.svc.Approve(ctx, id, d); err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}

	w.metrics.RecordApprovalDecided(ctx, "approved")
	w.recordDecision(ctx, audit.ActionApprovalGranted, req, approver, "")
	return nil
}

// Reject transitions pending -> rejected. Same guards as Approve; a reason
// is mandatory.
func (w *Workflow) Reject(ctx context.Context, id string, rejector types.Actor, reason, notes string) error {
	ctx, span := w.tracer.Start(ctx, "approval.reject")
	defer span.End()

	if reason == "" {
		return errors.New("rejection reason is required")
	}

	req, err := w.guardDecision(ctx, id, rejector)
	if err != nil {
		return err
	}

	d := Decision{
		ActorID:   rejector.UserID,
		ActorName: rejector.Username,
		Reason:    reason,
		Notes:     notes,
		DecidedAt: w.now().UTC(),
	}
	if err := w.svc.Reject(ctx, id, d); err != nil {
		return fmt.Errorf("reject failed: %w", err)
	}

	w.metrics.RecordApprovalDecided(ctx, "rejected")
	w.recordDecision(ctx, audit.ActionApprovalRejected, req, rejector, reason)
	return nil
}

// Cancel transitions pending -> cancelled. Only the requester or an admin
// may cancel.
func (w *Workflow) Cancel(ctx context.Context, id string, actor types.Actor) error {
	ctx, span := w.tracer.Start(ctx, "approval.cancel")
	defer span.End()

	req, err := w.svc.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}
	if req.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
	}
	if actor.UserID != req.RequestedBy.UserID && actor.Role != types.RoleAdmin {
		return ErrNotRequestOwner
	}

	if err := w.svc.Cancel(ctx, id, actor.UserID); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}

	w.metrics.RecordApprovalDecided(ctx, "cancelled")
	w.recordDecision(ctx, audit.ActionApprovalCancelled, req, actor, "")
	return nil
}

// ValidateBeforeExecute is the mandatory re-check immediately before a gated
// pull executes. Closes the gap between approval time and execution time:
// the request must still be approved, unexpired, and bound to the same
// runtime.
func (w *Workflow) ValidateBeforeExecute(ctx context.Context, id, runtimeID string) (ValidationResult, error) {
	ctx, span := w.tracer.Start(ctx, "approval.validate")
	defer span.End()

	result, err := w.svc.Validate(ctx, id, runtimeID)
	if err != nil {
		// Fail closed: an unverifiable approval is no approval
		return ValidationResult{Valid: false, Reason: "validation unavailable"}, fmt.Errorf("validation failed: %w", err)
	}
	return result, nil
}

func (w *Workflow) guardDecision(ctx context.Context, id string, actor types.Actor) (Request, error) {
	req, err := w.svc.Get(ctx, id)
	if err != nil {
		return Request{}, fmt.Errorf("failed to load request: %w", err)
	}
	if req.IsExpired(w.now()) || req.Status == StatusExpired {
		return Request{}, fmt.Errorf("%w: expired at %s", ErrExpired, req.ExpiresAt.Format(time.RFC3339))
	}
	if err := req.CanTransitionTo(StatusApproved); err != nil {
		return Request{}, err
	}
	if actor.UserID == req.RequestedBy.UserID {
		return Request{}, ErrSelfApproval
	}
	return req, nil
}

func (w *Workflow) recordDecision(ctx context.Context, action audit.Action, req Request, decider types.Actor, reason string) {
	if w.trail == nil {
		return
	}

	entry := audit.NewEntry(action, audit.SeverityInfo, decider).WithRuntime(req.Runtime)
	entry.ApprovalRequestID = req.ID
	entry.Details = map[string]string{
		"approver_id":  decider.UserID,
		"requester_id": req.RequestedBy.UserID,
	}
	if reason != "" {
		entry.Details["reason"] = reason
	}

	// Audit degradation never reverses the decision
	if err := w.trail.Record(ctx, entry); err != nil {
		w.logger.WithContext(ctx).Warn().Err(err).
			Str("request_id", req.ID).
			Msg("approval decision recorded locally only")
	}
}
