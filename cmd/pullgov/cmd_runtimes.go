package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// runtimesCmd represents the runtimes command
var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List registered PLC runtimes",
	Long: `List the runtimes known to the Runtime Registry, with their
environment tier and connection status. Pull targets are chosen from
this list.`,
	Example: `  pullgov runtimes`,
	RunE:    runRuntimes,
}

func init() {
	rootCmd.AddCommand(runtimesCmd)
}

func runRuntimes(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	runtimes, err := a.registry.List(context.Background())
	if err != nil {
		return err
	}

	if len(runtimes) == 0 {
		fmt.Println("No runtimes registered")
		return nil
	}

	fmt.Printf("%-12s %-24s %-12s %-16s %s\n", "ID", "NAME", "ENV", "ADDRESS", "STATUS")
	for _, rt := range runtimes {
		fmt.Printf("%-12s %-24s %-12s %-16s %s\n",
			rt.ID, rt.Name, rt.Environment, rt.IPAddress, rt.Status)
	}
	return nil
}
