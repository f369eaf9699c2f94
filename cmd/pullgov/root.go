package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	cfgPath      string
	actorUserID  string
	actorName    string
	actorRole    string

	rootCmd = &cobra.Command{
		Use:   "pullgov",
		Short: "PLC Pull Governance Engine",
		Long: `pullgov - PLC Pull Governance Engine

pullgov decides who may pull configuration snapshots from live PLC
runtimes, routes production pulls through an approval workflow, and
keeps a tamper-evident audit trail of every decision.

Evaluate pull permissions, execute governed pulls, manage approval
requests, and query the governance audit trail.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`pullgov {{.Version}} - PLC Pull Governance Engine
`)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (or PULLGOV_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&actorUserID, "user", "", "Acting user id (or PULLGOV_USER)")
	rootCmd.PersistentFlags().StringVar(&actorName, "username", "", "Acting user display name")
	rootCmd.PersistentFlags().StringVar(&actorRole, "role", "", "Acting user role: admin, engineer, operator, viewer (or PULLGOV_ROLE)")
}
