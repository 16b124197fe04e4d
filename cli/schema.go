package main

import (
	"fmt"
	"os"

	"KasutamaizaBot/bot"
	"KasutamaizaBot/config"
	"KasutamaizaBot/db"
	"KasutamaizaBot/schema"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// openDB overrides the pool's driver opener when set
var openDB db.Opener

func newSchemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Check or apply the database schema",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify that every foreign key points at an earlier table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables := schema.Tables()
			if err := schema.CheckOrder(tables); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading("Schema order:"))
			for i, t := range tables {
				fmt.Fprintf(out, "  %d. %s\n", i+1, t.Name)
			}
			fmt.Fprintln(out, okMark("Schema order is valid"))
			return nil
		},
	})

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Connect to the database and create any missing tables",
		Args:  cobra.NoArgs,
		RunE:  runSchemaApply,
	}
	apply.Flags().Bool("verbose", false, "log every table as it is applied")
	schemaCmd.AddCommand(apply)
	return schemaCmd
}

func runSchemaApply(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(newValidator(cmd))
	if err != nil {
		return err
	}

	logger := zerolog.Nop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	pool := db.NewPool(logger, nil)
	if openDB != nil {
		pool = pool.WithOpener(openDB)
	}
	if _, err := pool.Initialize(cmd.Context(), bot.Credentials(cfg), bot.PoolOptions(cfg)); err != nil {
		return err
	}
	defer pool.Close()

	tables := schema.Tables()
	if err := schema.Ensure(cmd.Context(), pool, tables, logger); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d tables on %s/%s\n", okMark("Applied"), len(tables), cfg.DBHost, cfg.DBName)
	return nil
}
