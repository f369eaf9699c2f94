package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plcforge/pullgov/audit"
)

var (
	auditQueryUser    string
	auditQueryRuntime string
	auditQueryAction  string
	auditQueryDays    int
	auditQueryLimit   int
	auditQueryJSON    bool
)

// auditCmd represents the audit command group
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the governance audit trail",
	Long: `Query, verify, and summarize the pull governance audit trail.

Entries are written by the Audit Service; verification checks its
tamper-evidence chain. A failed verification is reported but never
alters recorded decisions.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit entries",
	Example: `  pullgov audit query --days 7
  pullgov audit query --user U100 --action pull-initiated
  pullgov audit query --runtime RT-7 --json`,
	RunE: runAuditQuery,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit trail integrity",
	RunE:  runAuditVerify,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audit trail statistics",
	RunE:  runAuditStats,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditStatsCmd)

	auditQueryCmd.Flags().StringVar(&auditQueryUser, "user-filter", "", "Filter by user id")
	auditQueryCmd.Flags().StringVar(&auditQueryRuntime, "runtime", "", "Filter by runtime id")
	auditQueryCmd.Flags().StringVar(&auditQueryAction, "action", "", "Filter by action (e.g. pull-initiated, permission-denied)")
	auditQueryCmd.Flags().IntVar(&auditQueryDays, "days", 7, "How many days back to query")
	auditQueryCmd.Flags().IntVar(&auditQueryLimit, "limit", 50, "Maximum entries to return")
	auditQueryCmd.Flags().BoolVar(&auditQueryJSON, "json", false, "Emit raw JSON")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	now := time.Now().UTC()
	entries, err := a.trail.Query(context.Background(), audit.Filter{
		UserID:    auditQueryUser,
		RuntimeID: auditQueryRuntime,
		Action:    audit.Action(auditQueryAction),
		StartDate: now.AddDate(0, 0, -auditQueryDays),
		EndDate:   now,
		Limit:     auditQueryLimit,
	})
	if err != nil {
		return err
	}

	if auditQueryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries")
		return nil
	}

	fmt.Printf("%-26s %-20s %-28s %-16s %s\n", "TIME", "USER", "ACTION", "RUNTIME", "OUTCOME")
	for i := range entries {
		e := &entries[i]
		outcome := "ok"
		if !e.Success {
			outcome = "failed: " + e.ErrorMessage
		}
		fmt.Printf("%-26s %-20s %-28s %-16s %s\n",
			e.Timestamp.Format(time.RFC3339), e.Username, e.Action, e.RuntimeID, outcome)
	}
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report, err := a.trail.VerifyIntegrity(context.Background())
	if err != nil {
		return err
	}

	if report.Valid {
		fmt.Printf("✅ Audit trail intact: %d/%d entries verified\n", report.VerifiedCount, report.TotalCount)
		return nil
	}

	fmt.Printf("❌ Audit trail verification FAILED: %d/%d entries verified\n", report.VerifiedCount, report.TotalCount)
	for _, msg := range report.Errors {
		fmt.Printf("   - %s\n", msg)
	}
	return fmt.Errorf("integrity verification failed")
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats, err := a.trail.Stats(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
