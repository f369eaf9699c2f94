package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plcforge/pullgov/approval"
)

var (
	approvalsMine        bool
	approvalNotes        string
	approvalRejectReason string
)

// approvalsCmd represents the approvals command group
var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Manage pull approval requests",
	Long: `List and decide approval requests for production pulls.

Approving and rejecting require the admin role with production approval
capability; approvers cannot decide their own requests. Requesters may
cancel their own pending requests.`,
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approval requests",
	Example: `  pullgov approvals list          # All pending requests
  pullgov approvals list --mine   # My own requests`,
	RunE: runApprovalsList,
}

var approvalsApproveCmd = &cobra.Command{
	Use:     "approve <request-id>",
	Short:   "Approve a pending request",
	Args:    cobra.ExactArgs(1),
	Example: `  pullgov approvals approve APR-1756-abc1234 --notes "change window confirmed"`,
	RunE:    runApprovalsApprove,
}

var approvalsRejectCmd = &cobra.Command{
	Use:     "reject <request-id>",
	Short:   "Reject a pending request",
	Args:    cobra.ExactArgs(1),
	Example: `  pullgov approvals reject APR-1756-abc1234 --reason "outside change window"`,
	RunE:    runApprovalsReject,
}

var approvalsCancelCmd = &cobra.Command{
	Use:   "cancel <request-id>",
	Short: "Cancel your own pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalsCancel,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd)
	approvalsCmd.AddCommand(approvalsApproveCmd)
	approvalsCmd.AddCommand(approvalsRejectCmd)
	approvalsCmd.AddCommand(approvalsCancelCmd)

	approvalsListCmd.Flags().BoolVar(&approvalsMine, "mine", false, "Show my requests instead of the pending queue")
	approvalsApproveCmd.Flags().StringVar(&approvalNotes, "notes", "", "Notes attached to the decision")
	approvalsRejectCmd.Flags().StringVar(&approvalRejectReason, "reason", "", "Why the request is rejected (required)")
	approvalsRejectCmd.Flags().StringVar(&approvalNotes, "notes", "", "Notes attached to the decision")
	_ = approvalsRejectCmd.MarkFlagRequired("reason")
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	var requests []approval.Request
	if approvalsMine {
		actor, err := currentActor()
		if err != nil {
			return err
		}
		requests, err = a.workflow.MyRequests(ctx, actor.UserID)
		if err != nil {
			return err
		}
	} else {
		requests, err = a.workflow.Pending(ctx)
		if err != nil {
			return err
		}
	}

	if len(requests) == 0 {
		fmt.Println("No approval requests")
		return nil
	}

	now := time.Now()
	fmt.Printf("%-28s %-10s %-20s %-12s %-10s %s\n",
		"REQUEST", "STATUS", "RUNTIME", "ENV", "EXPIRES", "REQUESTED BY")
	for i := range requests {
		r := &requests[i]
		fmt.Printf("%-28s %-10s %-20s %-12s %-10s %s\n",
			r.ID, r.Status, r.Runtime.Name, r.Runtime.Environment,
			r.RemainingLabel(now), r.RequestedBy.Username)
	}
	return nil
}

func runApprovalsApprove(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.workflow.Approve(context.Background(), args[0], actor, approvalNotes); err != nil {
		return err
	}
	fmt.Printf("✅ Approved %s\n", args[0])
	return nil
}

func runApprovalsReject(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.workflow.Reject(context.Background(), args[0], actor, approvalRejectReason, approvalNotes); err != nil {
		return err
	}
	fmt.Printf("🚫 Rejected %s\n", args[0])
	return nil
}

func runApprovalsCancel(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.workflow.Cancel(context.Background(), args[0], actor); err != nil {
		return err
	}
	fmt.Printf("↩️  Cancelled %s\n", args[0])
	return nil
}
