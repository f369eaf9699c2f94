package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/plcforge/pullgov/approval"
	"github.com/plcforge/pullgov/audit"
	"github.com/plcforge/pullgov/client"
	"github.com/plcforge/pullgov/config"
	"github.com/plcforge/pullgov/gate"
	"github.com/plcforge/pullgov/registry"
	"github.com/plcforge/pullgov/snapshot"
	"github.com/plcforge/pullgov/types"
)

// app wires the governance components from configuration. One app per
// command invocation.
type app struct {
	cfg       *config.Config
	trail     *audit.Trail
	workflow  *approval.Workflow
	gate      *gate.Gate
	registry  *registry.Client
	snapshots *snapshot.Client
	spool     audit.Spool
}

// newApp builds the component graph for commands that talk to the
// collaborating services
func newApp() (*app, error) {
	path := cfgPath
	if path == "" {
		path = os.Getenv("PULLGOV_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("config file required: pass --config or set PULLGOV_CONFIG")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	tokens := client.StaticToken(os.Getenv("PULLGOV_TOKEN"))
	dial := func(baseURL string) *client.Client {
		return client.New(baseURL, client.Options{
			Timeout: cfg.Services.Timeout,
			Tokens:  tokens,
		})
	}

	var spool audit.Spool
	if cfg.Audit.SpoolPath != "" {
		spool, err = audit.OpenBoltSpool(cfg.Audit.SpoolPath, cfg.Audit.SpoolCapacity)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit spool: %w", err)
		}
	} else {
		spool = audit.NewMemorySpool(cfg.Audit.SpoolCapacity)
	}

	trail := audit.NewTrail(audit.NewHTTPService(dial(cfg.Services.AuditURL)), audit.TrailOptions{
		Spool:      spool,
		ReplayRate: cfg.Audit.ReplayRate,
	})
	workflow := approval.NewWorkflow(approval.NewHTTPService(dial(cfg.Services.ApprovalURL)), approval.WorkflowOptions{
		TTL:   cfg.Approval.TTL,
		Trail: trail,
	})

	return &app{
		cfg:       cfg,
		trail:     trail,
		workflow:  workflow,
		gate:      gate.New(trail, workflow, gate.Options{}),
		registry:  registry.NewClient(dial(cfg.Services.RegistryURL)),
		snapshots: snapshot.NewClient(dial(cfg.Services.SnapshotURL), cfg.Pull.ExecutionTimeout),
		spool:     spool,
	}, nil
}

// Close releases the audit spool
func (a *app) Close() error {
	if a.spool != nil {
		return a.spool.Close()
	}
	return nil
}

// currentActor resolves the acting user from flags with env fallback
func currentActor() (types.Actor, error) {
	userID := actorUserID
	if userID == "" {
		userID = os.Getenv("PULLGOV_USER")
	}
	roleName := actorRole
	if roleName == "" {
		roleName = os.Getenv("PULLGOV_ROLE")
	}
	if userID == "" || roleName == "" {
		return types.Actor{}, fmt.Errorf("acting user required: pass --user and --role or set PULLGOV_USER and PULLGOV_ROLE")
	}

	role, err := types.ParseRole(roleName)
	if err != nil {
		return types.Actor{}, err
	}

	name := actorName
	if name == "" {
		name = userID
	}
	return types.Actor{UserID: userID, Username: name, Role: role}, nil
}

// parseScope turns a comma-separated artifact list into a snapshot scope.
// "all" selects everything.
func parseScope(s string) (types.SnapshotScope, error) {
	if strings.TrimSpace(s) == "all" {
		return types.FullScope(), nil
	}

	var scope types.SnapshotScope
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "programs":
			scope.Programs = true
		case "tags":
			scope.Tags = true
		case "data_types":
			scope.DataTypes = true
		case "routines":
			scope.Routines = true
		case "aois":
			scope.AOIs = true
		case "execution_units":
			scope.ExecutionUnits = true
		case "constants":
			scope.Constants = true
		default:
			return types.SnapshotScope{}, fmt.Errorf("unknown artifact class: %s", strings.TrimSpace(part))
		}
	}
	if scope.IsEmpty() {
		return types.SnapshotScope{}, fmt.Errorf("scope selects nothing")
	}
	return scope, nil
}
