package main

import (
	"fmt"

	"KasutamaizaBot/logging"

	"github.com/spf13/cobra"
)

// secrets returns the credentials that must never be echoed from a log line
func secrets() []string {
	var out []string
	for _, key := range []string{"BOT_TOKEN", "DB_PASSWORD"} {
		if v, ok := lookupEnv(key); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

func newLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Search, filter and archive bot log files",
	}

	search := &cobra.Command{
		Use:   "search <file> <query>",
		Short: "Print every line containing query (case-insensitive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := logging.Search(args[0], args[1])
			if err != nil {
				return err
			}
			printLines(cmd, lines)
			fmt.Fprintf(cmd.OutOrStdout(), "%d match(es)\n", len(lines))
			return nil
		},
	}

	errorsCmd := &cobra.Command{
		Use:   "errors <file>",
		Short: "Print the latest JSON log entries at or above a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			n, _ := cmd.Flags().GetInt("last")
			lines, err := logging.ExtractErrors(args[0], level, n)
			if err != nil {
				return err
			}
			printLines(cmd, lines)
			return nil
		},
	}
	errorsCmd.Flags().StringP("level", "l", "error", "minimum level to report")
	errorsCmd.Flags().IntP("last", "n", 50, "number of entries to show, 0 for all")

	compress := &cobra.Command{
		Use:   "compress <dir>",
		Short: "Archive every *.log* file in dir into a .tar.gz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			n, err := logging.CompressLogs(args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d file(s) into %s\n", okMark("Archived"), n, output)
			return nil
		},
	}
	compress.Flags().StringP("output", "o", "logs.tar.gz", "archive path")

	logsCmd.AddCommand(search, errorsCmd, compress)
	return logsCmd
}

func printLines(cmd *cobra.Command, lines []string) {
	hidden := secrets()
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), logging.RedactSecrets(line, hidden...))
	}
}
