package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plcforge/pullgov/flow"
)

var (
	pullRuntimeID string
	pullProjectID string
	pullScope     string
	pullReason    string
	pullApproval  string
)

// pullCmd represents the pull command
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull a configuration snapshot from a runtime",
	Long: `Run a governed pull against a PLC runtime.

The pull is evaluated by the policy gate first. A denied pull stops
here; a production pull without standing approval creates an approval
request and exits, to be resumed with --approval once granted. Every
path is recorded in the audit trail.`,
	Example: `  pullgov pull --runtime RT-7 --scope all --reason "pre-change backup"
  pullgov pull --runtime RT-7 --scope tags,programs --reason "drift check"
  pullgov pull --runtime RT-7 --scope all --approval APR-1756-abc1234`,
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)

	pullCmd.Flags().StringVar(&pullRuntimeID, "runtime", "", "Runtime id to pull from")
	pullCmd.Flags().StringVar(&pullProjectID, "project", "", "Project the snapshot belongs to")
	pullCmd.Flags().StringVar(&pullScope, "scope", "all", "Artifact classes: all or a comma-separated list (programs,tags,data_types,routines,aois,execution_units,constants)")
	pullCmd.Flags().StringVar(&pullReason, "reason", "", "Why this pull is needed")
	pullCmd.Flags().StringVar(&pullApproval, "approval", "", "Approved request id to resume a pending pull")
	_ = pullCmd.MarkFlagRequired("runtime")
}

func runPull(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	scope, err := parseScope(pullScope)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	rt, err := a.registry.Get(ctx, pullRuntimeID)
	if err != nil {
		return fmt.Errorf("runtime lookup failed: %w", err)
	}

	runner := flow.NewRunner(actor, a.gate, a.workflow, a.snapshots, a.trail, flow.RunnerOptions{})
	if err := runner.Start("cli", pullProjectID); err != nil {
		return err
	}
	if err := runner.SelectRuntime(rt); err != nil {
		return err
	}
	if err := runner.SelectScope(scope); err != nil {
		return err
	}

	if pullApproval != "" {
		return resumeApprovedPull(ctx, runner, pullApproval)
	}

	verdict, err := runner.Review(ctx, pullReason)
	if err != nil {
		return err
	}
	if verdict.Warning != "" {
		fmt.Printf("⚠️  %s\n", verdict.Warning)
	}

	switch {
	case verdict.RequiresApproval():
		fmt.Printf("⏳ Approval required for %s (%s)\n", rt.Name, rt.Environment)
		fmt.Printf("   Request: %s\n", verdict.ApprovalRequestID)
		fmt.Printf("   Resume with: pullgov pull --runtime %s --scope %s --approval %s\n",
			pullRuntimeID, pullScope, verdict.ApprovalRequestID)
		return nil
	case !verdict.Allowed():
		return fmt.Errorf("pull denied: %s", verdict.DenialReason)
	}

	return executePull(ctx, runner)
}

// resumeApprovedPull drives a previously approved flow straight to
// execution. The approval is re-validated inside the runner.
func resumeApprovedPull(ctx context.Context, runner *flow.Runner, approvalID string) error {
	if err := runner.Machine().Send(flow.Event{
		Type:              flow.EventApprovalRequired,
		ApprovalRequestID: approvalID,
	}); err != nil {
		return err
	}
	return executePull(ctx, runner)
}

func executePull(ctx context.Context, runner *flow.Runner) error {
	if err := runner.Execute(ctx); err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	_, fctx := runner.Machine().State()
	fmt.Printf("✅ Pull complete\n")
	fmt.Printf("   Snapshot: %s\n", fctx.SnapshotID)
	fmt.Printf("   Items: %d\n", fctx.ItemsPulled)
	if fctx.ProjectName != "" {
		fmt.Printf("   Project: %s\n", fctx.ProjectName)
	}
	if fctx.Scope != nil {
		fmt.Printf("   Scope: %s\n", strings.Join(fctx.Scope.Categories(), ", "))
	}
	return nil
}
