package gate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plcforge/pullgov/approval"
	"github.com/plcforge/pullgov/audit"
	"github.com/plcforge/pullgov/permissions"
	"github.com/plcforge/pullgov/types"
)

var (
	engineer = types.Actor{UserID: "u-eng", Username: "eva", Role: types.RoleEngineer}
	operator = types.Actor{UserID: "u-op", Username: "omar", Role: types.RoleOperator}
	viewer   = types.Actor{UserID: "u-view", Username: "vic", Role: types.RoleViewer}
	admin    = types.Actor{UserID: "u-adm", Username: "ada", Role: types.RoleAdmin}

	prodRT = types.Runtime{ID: "R1", Name: "line-1", Environment: types.EnvProduction}
	stgRT  = types.Runtime{ID: "R2", Name: "line-2", Environment: types.EnvStaging}
	devRT  = types.Runtime{ID: "R3", Name: "bench", Environment: types.EnvDevelopment}
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    bool
}

func (c *captureRecorder) Record(_ context.Context, e audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	if c.fail {
		return audit.ErrRemoteUnavailable
	}
	return nil
}

func (c *captureRecorder) all() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Entry(nil), c.entries...)
}

type fakeSubmitter struct {
	workflow  *approval.Workflow
	submitErr error
	submitted []approval.Request
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{workflow: approval.NewWorkflow(nil, approval.WorkflowOptions{})}
}

func (f *fakeSubmitter) Create(reqType string, by types.Actor, rt types.Runtime, reason string, scope types.SnapshotScope, projectID string) approval.Request {
	return f.workflow.Create(reqType, by, rt, reason, scope, projectID)
}

func (f *fakeSubmitter) Submit(_ context.Context, req approval.Request) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return req.ID, nil
}

func descriptor(actor types.Actor, rt types.Runtime) types.PullRequestDescriptor {
	return types.PullRequestDescriptor{
		Runtime: rt,
		Scope:   types.SnapshotScope{Tags: true},
		Actor:   actor,
		Reason:  "routine sync",
	}
}

func caps(t *testing.T, role types.Role) permissions.CapabilitySet {
	t.Helper()
	c, err := permissions.Resolve(role)
	require.NoError(t, err)
	return c
}

func TestDecide_ViewerDeniedOnBlanketCapability(t *testing.T) {
	rec := &captureRecorder{}
	g := New(rec, newFakeSubmitter(), Options{})

	for _, rt := range []types.Runtime{prodRT, stgRT, devRT} {
		rec.entries = nil
		verdict := g.Decide(context.Background(), descriptor(viewer, rt), caps(t, types.RoleViewer))

		assert.False(t, verdict.Allowed())
		assert.Equal(t, types.VerdictDenied, verdict.Kind)
		assert.Contains(t, verdict.DenialReason, "pull-from-runtime")
		assert.False(t, verdict.Retryable, "policy denial is not retryable")

		entries := rec.all()
		require.Len(t, entries, 1, "exactly one audit entry")
		assert.Equal(t, audit.ActionPermissionDenied, entries[0].Action)
		assert.Equal(t, "pull_from_runtime", entries[0].Details["missing_capability"])
		assert.False(t, entries[0].Success)
	}
}

func TestDecide_OperatorDeniedOnStagingCapability(t *testing.T) {
	rec := &captureRecorder{}
	g := New(rec, newFakeSubmitter(), Options{})

	verdict := g.Decide(context.Background(), descriptor(operator, stgRT), caps(t, types.RoleOperator))

	assert.Equal(t, types.VerdictDenied, verdict.Kind)
	assert.Contains(t, verdict.DenialReason, "staging")

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPermissionDenied, entries[0].Action)
	assert.Equal(t, "pull_staging", entries[0].Details["missing_capability"])
}

func TestDecide_EngineerProductionRequiresApproval(t *testing.T) {
	rec := &captureRecorder{}
	sub := newFakeSubmitter()
	g := New(rec, sub, Options{})

	verdict := g.Decide(context.Background(), descriptor(engineer, prodRT), caps(t, types.RoleEngineer))

	assert.False(t, verdict.Allowed())
	assert.True(t, verdict.RequiresApproval())
	require.NotEmpty(t, verdict.ApprovalRequestID)

	require.Len(t, sub.submitted, 1, "exactly one approval request")
	assert.Equal(t, verdict.ApprovalRequestID, sub.submitted[0].ID)
	assert.Equal(t, engineer, sub.submitted[0].RequestedBy)

	entries := rec.all()
	require.Len(t, entries, 1, "exactly one audit entry")
	assert.Equal(t, audit.ActionApprovalRequested, entries[0].Action)
	assert.Equal(t, verdict.ApprovalRequestID, entries[0].ApprovalRequestID)
	assert.True(t, entries[0].Success)
}

func TestDecide_SubmissionFailureFailsClosed(t *testing.T) {
	rec := &captureRecorder{}
	sub := newFakeSubmitter()
	sub.submitErr = errors.New("approval service down")
	g := New(rec, sub, Options{})

	verdict := g.Decide(context.Background(), descriptor(engineer, prodRT), caps(t, types.RoleEngineer))

	assert.Equal(t, types.VerdictDenied, verdict.Kind)
	assert.True(t, verdict.Retryable, "transient failure offers retry")
	assert.Empty(t, verdict.ApprovalRequestID, "no phantom approval state")
	assert.Empty(t, sub.submitted)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionApprovalRequested, entries[0].Action)
	assert.False(t, entries[0].Success)
}

func TestDecide_EngineerDevelopmentAllowed(t *testing.T) {
	rec := &captureRecorder{}
	g := New(rec, newFakeSubmitter(), Options{})

	verdict := g.Decide(context.Background(), descriptor(engineer, devRT), caps(t, types.RoleEngineer))

	assert.True(t, verdict.Allowed())
	assert.False(t, verdict.RequiresApproval())

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPullInitiated, entries[0].Action)
	assert.Equal(t, devRT.ID, entries[0].RuntimeID)
	assert.True(t, entries[0].Success)
}

func TestDecide_AdminBypassesProductionApproval(t *testing.T) {
	rec := &captureRecorder{}
	sub := newFakeSubmitter()
	g := New(rec, sub, Options{})

	verdict := g.Decide(context.Background(), descriptor(admin, prodRT), caps(t, types.RoleAdmin))

	assert.True(t, verdict.Allowed())
	assert.Empty(t, sub.submitted)
	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPullInitiated, entries[0].Action)
}

func TestDecide_AuditFailureIsWarningNotDenial(t *testing.T) {
	rec := &captureRecorder{fail: true}
	g := New(rec, newFakeSubmitter(), Options{})

	verdict := g.Decide(context.Background(), descriptor(engineer, devRT), caps(t, types.RoleEngineer))

	assert.True(t, verdict.Allowed(), "audit degradation never withholds the decision")
	assert.NotEmpty(t, verdict.Warning)
}
