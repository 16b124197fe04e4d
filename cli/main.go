package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	heading  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// newRootCmd builds the command tree. Tests build a fresh tree per case.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "botcli",
		Short: "Kasutamaiza bot CLI - check and maintain a bot deployment",
		Long: `A CLI tool for operating the Kasutamaiza bot.
Validate the environment, apply the database schema, inspect command modules
and search or archive the bot's log files.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("env-file", "", "load variables from this .env file first")

	root.AddCommand(newEnvCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newModulesCmd())
	root.AddCommand(newLogsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failMark("Error:"), err)
		os.Exit(1)
	}
}
