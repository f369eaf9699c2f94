// Package gate is the pull policy decision point. It combines the role
// capability table, the approval workflow, and the audit trail into a single
// allow / deny / approval-required verdict.
//
// Every call writes exactly one audit entry and creates at most one approval
// request. No internal failure ever yields an allow: the only fail-open
// surface is the audit write itself, which degrades to a warning.
package gate

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plcforge/pullgov/approval"
	"github.com/plcforge/pullgov/audit"
	"github.com/plcforge/pullgov/permissions"
	"github.com/plcforge/pullgov/telemetry"
	"github.com/plcforge/pullgov/types"
)

// Recorder writes governance audit entries. Satisfied by *audit.Trail.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// ApprovalSubmitter creates and submits approval requests. Satisfied by
// *approval.Workflow.
type ApprovalSubmitter interface {
	Create(reqType string, requestedBy types.Actor, runtime types.Runtime, reason string, scope types.SnapshotScope, projectID string) approval.Request
	Submit(ctx context.Context, req approval.Request) (string, error)
}

// Gate decides whether a pull may proceed
type Gate struct {
	trail     Recorder
	approvals ApprovalSubmitter
	logger    *telemetry.Logger
	tracer    trace.Tracer
	metrics   *telemetry.GovernanceMetrics
}

// Options configure a Gate
type Options struct {
	Metrics *telemetry.GovernanceMetrics
}

// New creates a policy gate
func New(trail Recorder, approvals ApprovalSubmitter, opts Options) *Gate {
	return &Gate{
		trail:     trail,
		approvals: approvals,
		logger:    telemetry.NewLogger("policy-gate"),
		tracer:    otel.Tracer("pullgov/gate"),
		metrics:   opts.Metrics,
	}
}

// Decide evaluates a pull attempt against the actor's capability set.
// Branches are checked in order: blanket capability, environment capability,
// approval policy, allow. Each branch records exactly one audit entry before
// returning.
func (g *Gate) Decide(ctx context.Context, d types.PullRequestDescriptor, caps permissions.CapabilitySet) types.Verdict {
	ctx, span := g.tracer.Start(ctx, "gate.decide",
		trace.WithAttributes(
			attribute.String("runtime.id", d.Runtime.ID),
			attribute.String("runtime.environment", string(d.Runtime.Environment)),
			attribute.String("actor.role", string(d.Actor.Role))))
	defer span.End()

	var verdict types.Verdict
	switch {
	case !caps.PullFromRuntime:
		verdict = g.deny(ctx, d,
			fmt.Sprintf("role %s does not hold the pull-from-runtime capability", d.Actor.Role),
			"pull_from_runtime")

	case !permissions.CanPullFromRuntime(caps, d.Runtime.Environment):
		verdict = g.deny(ctx, d,
			fmt.Sprintf("role %s does not hold the pull-%s capability", d.Actor.Role, d.Runtime.Environment),
			"pull_"+string(d.Runtime.Environment))

	case permissions.RequiresApproval(caps, d.Runtime.Environment):
		verdict = g.requestApproval(ctx, d)

	default:
		verdict = g.allow(ctx, d)
	}

	g.metrics.RecordDecision(ctx, string(verdict.Kind), string(d.Runtime.Environment), string(d.Actor.Role))
	g.logger.LogVerdict(ctx, d, verdict)
	return verdict
}

func (g *Gate) deny(ctx context.Context, d types.PullRequestDescriptor, reason, missing string) types.Verdict {
	entry := audit.NewEntry(audit.ActionPermissionDenied, audit.SeverityWarning, d.Actor).WithRuntime(d.Runtime)
	entry.Success = false
	entry.ErrorMessage = reason
	entry.Details = map[string]string{"missing_capability": missing}

	verdict := types.Verdict{Kind: types.VerdictDenied, DenialReason: reason}
	return g.withAuditWarning(ctx, verdict, entry)
}

func (g *Gate) requestApproval(ctx context.Context, d types.PullRequestDescriptor) types.Verdict {
	req := g.approvals.Create(approval.TypePLCPull, d.Actor, d.Runtime, d.Reason, d.Scope, d.ProjectID)

	requestID, err := g.approvals.Submit(ctx, req)
	if err != nil {
		// Fail closed: no phantom approval state, safe to retry
		g.logger.LogServiceError(ctx, "approval", "submit", err)
		entry := audit.NewEntry(audit.ActionApprovalRequested, audit.SeverityError, d.Actor).WithRuntime(d.Runtime)
		entry.Success = false
		entry.ErrorMessage = err.Error()

		verdict := types.Verdict{
			Kind:         types.VerdictDenied,
			DenialReason: "approval request could not be submitted; try again",
			Retryable:    true,
		}
		return g.withAuditWarning(ctx, verdict, entry)
	}

	entry := audit.NewEntry(audit.ActionApprovalRequested, audit.SeverityInfo, d.Actor).WithRuntime(d.Runtime)
	entry.ApprovalRequestID = requestID
	entry.Details = map[string]string{"reason": d.Reason}

	verdict := types.Verdict{Kind: types.VerdictApprovalRequired, ApprovalRequestID: requestID}
	return g.withAuditWarning(ctx, verdict, entry)
}

func (g *Gate) allow(ctx context.Context, d types.PullRequestDescriptor) types.Verdict {
	entry := audit.NewEntry(audit.ActionPullInitiated, audit.SeverityInfo, d.Actor).WithRuntime(d.Runtime)
	entry.Details = map[string]string{"scope": fmt.Sprint(d.Scope.Categories())}

	verdict := types.Verdict{Kind: types.VerdictAllowed}
	return g.withAuditWarning(ctx, verdict, entry)
}

// withAuditWarning records the branch's single audit entry. A failed write
// surfaces as a verdict warning, never as a changed decision.
func (g *Gate) withAuditWarning(ctx context.Context, verdict types.Verdict, entry audit.Entry) types.Verdict {
	if err := g.trail.Record(ctx, entry); err != nil {
		verdict.Warning = "audit service unavailable; decision buffered locally"
	}
	return verdict
}
