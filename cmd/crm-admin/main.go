package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crm-admin",
	Short: "Administrative tasks for the CRM service",
	Long: `Maintenance commands that run against the configured PostgreSQL database.

Configuration is read from the same environment variables (and .env file) as the API.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd, operatorCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
