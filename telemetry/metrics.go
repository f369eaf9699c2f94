package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GovernanceMetrics holds the pull-governance operational metrics
type GovernanceMetrics struct {
	DecisionsMade      metric.Int64Counter
	ApprovalsRequested metric.Int64Counter
	ApprovalsDecided   metric.Int64Counter
	AuditSpooled       metric.Int64Counter
	AuditReplayed      metric.Int64Counter
	SpoolDepth         metric.Int64Gauge
	PullDuration       metric.Float64Histogram
}

// InitGovernanceMetrics initializes all governance metrics
func InitGovernanceMetrics(meter metric.Meter) (*GovernanceMetrics, error) {
	m := &GovernanceMetrics{}
	var err error

	m.DecisionsMade, err = meter.Int64Counter(
		"pullgov.decisions.total",
		metric.WithDescription("Total number of pull gate decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	m.ApprovalsRequested, err = meter.Int64Counter(
		"pullgov.approvals.requested.total",
		metric.WithDescription("Total number of approval requests submitted"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.ApprovalsDecided, err = meter.Int64Counter(
		"pullgov.approvals.decided.total",
		metric.WithDescription("Total number of approval requests decided"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.AuditSpooled, err = meter.Int64Counter(
		"pullgov.audit.spooled.total",
		metric.WithDescription("Audit entries diverted to the local spool"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.AuditReplayed, err = meter.Int64Counter(
		"pullgov.audit.replayed.total",
		metric.WithDescription("Spooled audit entries replayed to the audit service"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.SpoolDepth, err = meter.Int64Gauge(
		"pullgov.audit.spool.depth",
		metric.WithDescription("Current number of audit entries waiting in the local spool"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.PullDuration, err = meter.Float64Histogram(
		"pullgov.pull.duration.ms",
		metric.WithDescription("Time taken to execute a snapshot pull"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDecision records one gate decision
func (m *GovernanceMetrics) RecordDecision(ctx context.Context, verdict, environment, role string) {
	if m == nil {
		return
	}
	m.DecisionsMade.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("verdict", verdict),
			attribute.String("environment", environment),
			attribute.String("role", role),
		)),
	)
}

// RecordApprovalRequested records one submitted approval request
func (m *GovernanceMetrics) RecordApprovalRequested(ctx context.Context, environment string) {
	if m == nil {
		return
	}
	m.ApprovalsRequested.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("environment", environment),
		)),
	)
}

// RecordApprovalDecided records one approve/reject/cancel outcome
func (m *GovernanceMetrics) RecordApprovalDecided(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ApprovalsDecided.Add(ctx, 1,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("outcome", outcome),
		)),
	)
}

// RecordSpooled records audit entries diverted to the spool
func (m *GovernanceMetrics) RecordSpooled(ctx context.Context, depth int) {
	if m == nil {
		return
	}
	m.AuditSpooled.Add(ctx, 1)
	m.SpoolDepth.Record(ctx, int64(depth))
}

// RecordReplayed records audit entries drained from the spool
func (m *GovernanceMetrics) RecordReplayed(ctx context.Context, count, depth int) {
	if m == nil {
		return
	}
	m.AuditReplayed.Add(ctx, int64(count))
	m.SpoolDepth.Record(ctx, int64(depth))
}

// RecordPullDuration records one snapshot pull duration
func (m *GovernanceMetrics) RecordPullDuration(ctx context.Context, environment, status string, ms float64) {
	if m == nil {
		return
	}
	m.PullDuration.Record(ctx, ms,
		metric.WithAttributeSet(attribute.NewSet(
			attribute.String("environment", environment),
			attribute.String("status", status),
		)),
	)
}
