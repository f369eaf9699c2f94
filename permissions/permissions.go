// Package permissions maps engineering roles to capability sets and derives
// the pull-policy predicates from them.
//
// The role table here is a UX hint for fast local feedback. The services
// behind the approval and pull-execution boundaries re-check authorization;
// a client-side table is not a security boundary.
package permissions

import (
	"errors"
	"fmt"

	"github.com/plcforge/pullgov/types"
)

// ErrUnknownRole marks a role outside the closed enum. This is a
// configuration error: resolving must fail loudly, never fall back to a
// permissive or restrictive default.
var ErrUnknownRole = errors.New("unknown role")

// CapabilitySet is the fixed-shape record of capabilities held by a role.
// One set exists per role, computed statically, never mutated at runtime.
type CapabilitySet struct {
	PullFromRuntime bool `json:"pull_from_runtime"`
	PullProduction  bool `json:"pull_production"`
	PullStaging     bool `json:"pull_staging"`
	PullDevelopment bool `json:"pull_development"`

	CloneBaseline  bool `json:"clone_baseline"`
	ModifyBaseline bool `json:"modify_baseline"`
	DeleteBaseline bool `json:"delete_baseline"`

	CreateDraft  bool `json:"create_draft"`
	EditDraft    bool `json:"edit_draft"`
	PromoteDraft bool `json:"promote_draft"`

	ApproveProduction bool `json:"approve_production"`
	BypassApproval    bool `json:"bypass_approval"`

	ViewAudit   bool `json:"view_audit"`
	ExportAudit bool `json:"export_audit"`
}

var roleCapabilities = map[types.Role]CapabilitySet{
	types.RoleAdmin: {
		PullFromRuntime:   true,
		PullProduction:    true,
		PullStaging:       true,
		PullDevelopment:   true,
		CloneBaseline:     true,
		ModifyBaseline:    true,
		DeleteBaseline:    true,
		CreateDraft:       true,
		EditDraft:         true,
		PromoteDraft:      true,
		ApproveProduction: true,
		BypassApproval:    true,
		ViewAudit:         true,
		ExportAudit:       true,
	},
	types.RoleEngineer: {
		PullFromRuntime: true,
		PullProduction:  true,
		PullStaging:     true,
		PullDevelopment: true,
		CloneBaseline:   true,
		ModifyBaseline:  true,
		CreateDraft:     true,
		EditDraft:       true,
		PromoteDraft:    true,
		ViewAudit:       true,
	},
	types.RoleOperator: {
		PullFromRuntime: true,
		PullDevelopment: true,
		CreateDraft:     true,
		EditDraft:       true,
		ViewAudit:       true,
	},
	types.RoleViewer: {
		ViewAudit: true,
	},
}

// Resolve returns the capability set for a role. Total over the closed role
// enum; any other value fails with ErrUnknownRole.
func Resolve(role types.Role) (CapabilitySet, error) {
	caps, ok := roleCapabilities[role]
	if !ok {
		return CapabilitySet{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return caps, nil
}

// CanPullFromRuntime reports whether the capability set permits pulling from
// the given environment tier. False unless both the blanket pull capability
// and the environment-specific capability are held.
func CanPullFromRuntime(caps CapabilitySet, env types.Environment) bool {
	if !caps.PullFromRuntime {
		return false
	}
	switch env {
	case types.EnvProduction:
		return caps.PullProduction
	case types.EnvStaging:
		return caps.PullStaging
	case types.EnvDevelopment:
		return caps.PullDevelopment
	default:
		return false
	}
}

// RequiresApproval reports whether a pull from the given environment must go
// through the human approval workflow.
func RequiresApproval(caps CapabilitySet, env types.Environment) bool {
	if caps.BypassApproval {
		return false
	}
	if env == types.EnvProduction {
		return !caps.ApproveProduction
	}
	return false
}
