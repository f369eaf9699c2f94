package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plcforge/pullgov/permissions"
	"github.com/plcforge/pullgov/types"
)

var decideEnvironment string

// decideCmd represents the decide command
var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate pull permission for a role and environment",
	Long: `Evaluate what the policy gate would decide for the acting user
against a runtime in the given environment, without contacting any
service or creating an approval request.

The answer is one of:
- allowed            the pull would run immediately
- denied             the role lacks the required capability
- approval-required  the pull would wait on an approval request`,
	Example: `  pullgov decide --role engineer --environment production
  pullgov decide --role operator --environment staging
  pullgov decide --role viewer --environment development`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideEnvironment, "environment", "e", "", "Runtime environment: production, staging, development")
	_ = decideCmd.MarkFlagRequired("environment")
}

func runDecide(cmd *cobra.Command, args []string) error {
	env, err := types.ParseEnvironment(decideEnvironment)
	if err != nil {
		return err
	}

	roleName := actorRole
	if roleName == "" {
		return fmt.Errorf("--role is required")
	}
	role, err := types.ParseRole(roleName)
	if err != nil {
		return err
	}

	caps, err := permissions.Resolve(role)
	if err != nil {
		return err
	}

	switch {
	case !permissions.CanPullFromRuntime(caps, env):
		fmt.Printf("denied: role %s may not pull from %s runtimes\n", role, env)
	case permissions.RequiresApproval(caps, env):
		fmt.Printf("approval-required: role %s needs an approved request to pull from %s runtimes\n", role, env)
	default:
		fmt.Printf("allowed: role %s may pull from %s runtimes\n", role, env)
	}
	return nil
}
