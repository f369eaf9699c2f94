package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plcforge/pullgov/approval"
	"github.com/plcforge/pullgov/audit"
	"github.com/plcforge/pullgov/permissions"
	"github.com/plcforge/pullgov/snapshot"
	"github.com/plcforge/pullgov/telemetry"
	"github.com/plcforge/pullgov/types"
)

// ErrFlowIncomplete marks an execution attempt before runtime and scope
// were selected
var ErrFlowIncomplete = errors.New("flow is missing runtime or scope")

// Decider renders the pull verdict. Satisfied by *gate.Gate.
type Decider interface {
	Decide(ctx context.Context, d types.PullRequestDescriptor, caps permissions.CapabilitySet) types.Verdict
}

// Validator re-checks an approval immediately before execution. Satisfied by
// *approval.Workflow.
type Validator interface {
	ValidateBeforeExecute(ctx context.Context, id, runtimeID string) (approval.ValidationResult, error)
}

// PullExecutor performs the snapshot pull. Satisfied by *snapshot.Client.
type PullExecutor interface {
	Pull(ctx context.Context, runtimeID, projectID string, scope types.SnapshotScope) (*snapshot.Result, error)
}

// Recorder writes governance audit entries. Satisfied by *audit.Trail.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Runner drives one actor's pull flow through the machine, consulting the
// gate at review time and the executor at pull time. One Runner per session.
type Runner struct {
	machine  *Machine
	actor    types.Actor
	gate     Decider
	approver Validator
	executor PullExecutor
	trail    Recorder
	leases   *Leases
	logger   *telemetry.Logger
	tracer   trace.Tracer
	metrics  *telemetry.GovernanceMetrics
}

// RunnerOptions configure a Runner
type RunnerOptions struct {
	// Leases is the process-wide runtime lease table. Optional; a private
	// table is created when absent, which still serializes pulls within
	// this Runner.
	Leases  *Leases
	Metrics *telemetry.GovernanceMetrics
}

// NewRunner creates a flow runner for the given actor
func NewRunner(actor types.Actor, gate Decider, approver Validator, executor PullExecutor, trail Recorder, opts RunnerOptions) *Runner {
	leases := opts.Leases
	if leases == nil {
		leases = NewLeases()
	}
	return &Runner{
		machine:  NewMachine(),
		actor:    actor,
		gate:     gate,
		approver: approver,
		executor: executor,
		trail:    trail,
		leases:   leases,
		logger:   telemetry.NewLogger("pull-flow"),
		tracer:   otel.Tracer("pullgov/flow"),
		metrics:  opts.Metrics,
	}
}

// Machine exposes the underlying state machine for observation
func (r *Runner) Machine() *Machine {
	return r.machine
}

// Start begins a flow from the given entry point
func (r *Runner) Start(entryPoint, projectID string) error {
	return r.machine.Send(Event{Type: EventStart, EntryPoint: entryPoint, ProjectID: projectID})
}

// SelectRuntime records the chosen runtime
func (r *Runner) SelectRuntime(rt types.Runtime) error {
	return r.machine.Send(Event{Type: EventRuntimeSelected, Runtime: &rt})
}

// SelectScope records the chosen snapshot scope
func (r *Runner) SelectScope(scope types.SnapshotScope) error {
	return r.machine.Send(Event{Type: EventScopeSelected, Scope: &scope})
}

// Review asks the gate for a verdict on the selected runtime and scope. An
// approval-required verdict parks the flow in approval-pending; a denial
// terminates it. An allowed verdict leaves the flow ready for Execute.
func (r *Runner) Review(ctx context.Context, reason string) (types.Verdict, error) {
	ctx, span := r.tracer.Start(ctx, "flow.review")
	defer span.End()

	state, fctx := r.machine.State()
	if fctx.Runtime == nil || fctx.Scope == nil {
		return types.Verdict{}, ErrFlowIncomplete
	}
	// Guard here rather than after the gate call: a rejected Send at that
	// point would already have submitted an approval request.
	if state != StateReviewingApproval {
		return types.Verdict{}, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, "review", state)
	}

	caps, err := permissions.Resolve(r.actor.Role)
	if err != nil {
		_ = r.machine.Send(Event{Type: EventPullError, Error: err.Error()})
		return types.Verdict{}, err
	}

	verdict := r.gate.Decide(ctx, types.PullRequestDescriptor{
		Runtime:   *fctx.Runtime,
		ProjectID: fctx.ProjectID,
		Scope:     *fctx.Scope,
		Actor:     r.actor,
		Reason:    reason,
	}, caps)
	span.SetAttributes(attribute.String("verdict", string(verdict.Kind)))

	switch {
	case verdict.RequiresApproval():
		if err := r.machine.Send(Event{Type: EventApprovalRequired, ApprovalRequestID: verdict.ApprovalRequestID}); err != nil {
			return verdict, err
		}
	case !verdict.Allowed():
		if err := r.machine.Send(Event{Type: EventPullError, Error: verdict.DenialReason}); err != nil {
			return verdict, err
		}
	}
	return verdict, nil
}

// Execute performs the pull. When the flow carries an approval request id the
// approval is re-validated first; a stale or invalid approval aborts the pull
// before anything touches the runtime. At most one pull runs per runtime at a
// time. Results arriving after a RESET or CANCEL are discarded.
func (r *Runner) Execute(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "flow.execute")
	defer span.End()

	_, fctx := r.machine.State()
	if fctx.Runtime == nil || fctx.Scope == nil {
		return ErrFlowIncomplete
	}
	rt := *fctx.Runtime

	if fctx.ApprovalRequestID != "" {
		if err := r.validateApproval(ctx, fctx.ApprovalRequestID, rt); err != nil {
			return err
		}
	}

	if err := r.leases.Acquire(rt.ID, r.actor.UserID); err != nil {
		_ = r.machine.Send(Event{Type: EventPullError, Error: err.Error()})
		return err
	}
	defer r.leases.Release(rt.ID, r.actor.UserID)

	generation := r.machine.Generation()
	if err := r.machine.Send(Event{Type: EventExecutePull}); err != nil {
		return err
	}

	start := time.Now()
	result, err := r.executor.Pull(ctx, rt.ID, fctx.ProjectID, *fctx.Scope)
	elapsed := float64(time.Since(start).Milliseconds())

	if r.machine.Generation() != generation {
		// The flow was reset while the pull was in flight; the result
		// belongs to a session that no longer exists.
		r.logger.WithContext(ctx).Warn().Str("runtime_id", rt.ID).Msg("discarding stale pull result")
		return nil
	}

	if err != nil {
		r.recordOutcome(ctx, audit.ActionPullFailed, rt, fctx, func(e *audit.Entry) {
			e.Severity = audit.SeverityError
			e.Success = false
			e.ErrorMessage = err.Error()
		})
		r.metrics.RecordPullDuration(ctx, string(rt.Environment), "failed", elapsed)
		if sendErr := r.machine.Send(Event{Type: EventPullError, Error: err.Error()}); sendErr != nil {
			return sendErr
		}
		return err
	}

	r.recordOutcome(ctx, audit.ActionPullCompleted, rt, fctx, func(e *audit.Entry) {
		e.SnapshotID = result.SnapshotID
		e.Details = map[string]string{
			"items_pulled": fmt.Sprintf("%d", result.ItemsPulled),
			"project_id":   result.ProjectID,
		}
	})
	r.metrics.RecordPullDuration(ctx, string(rt.Environment), "success", elapsed)
	return r.machine.Send(Event{Type: EventPullSuccess, Result: result})
}

// Cancel abandons the flow and returns the machine to idle
func (r *Runner) Cancel() error {
	return r.machine.Send(Event{Type: EventCancel})
}

// validateApproval fails closed: an approval that cannot be confirmed valid
// right now does not authorize a pull, whatever its state was at review time.
func (r *Runner) validateApproval(ctx context.Context, requestID string, rt types.Runtime) error {
	result, err := r.approver.ValidateBeforeExecute(ctx, requestID, rt.ID)
	if err == nil && result.Valid {
		return nil
	}

	reason := result.Reason
	if err != nil {
		reason = err.Error()
	}

	entry := audit.NewEntry(audit.ActionApprovalValidationFailed, audit.SeverityWarning, r.actor).WithRuntime(rt)
	entry.ApprovalRequestID = requestID
	entry.Success = false
	entry.ErrorMessage = reason
	if recErr := r.trail.Record(ctx, entry); recErr != nil {
		r.logger.WithContext(ctx).Warn().Err(recErr).Msg("audit entry buffered locally")
	}

	if sendErr := r.machine.Send(Event{Type: EventPullError, Error: "approval no longer valid: " + reason}); sendErr != nil {
		return sendErr
	}
	return fmt.Errorf("approval %s no longer valid: %s", requestID, reason)
}

func (r *Runner) recordOutcome(ctx context.Context, action audit.Action, rt types.Runtime, fctx Context, mutate func(*audit.Entry)) {
	entry := audit.NewEntry(action, audit.SeverityInfo, r.actor).WithRuntime(rt)
	entry.ApprovalRequestID = fctx.ApprovalRequestID
	mutate(&entry)
	if err := r.trail.Record(ctx, entry); err != nil {
		r.logger.WithContext(ctx).Warn().Err(err).Msg("audit entry buffered locally")
	}
}
