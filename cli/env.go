package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"KasutamaizaBot/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// lookupEnv is swapped in tests
var lookupEnv = os.LookupEnv

func newValidator(cmd *cobra.Command) *config.Validator {
	if file, _ := cmd.Flags().GetString("env-file"); file != "" {
		config.LoadDotenv(zerolog.Nop(), file)
	}
	return config.NewValidatorWithLookup(zerolog.Nop(), lookupEnv)
}

func newEnvCmd() *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect the bot environment",
	}
	envCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the required and optional environment variables",
		Long:  `Check every required variable and report all of the missing ones at once, then validate the optional settings.`,
		Args:  cobra.NoArgs,
		RunE:  runEnvCheck,
	})
	return envCmd
}

func runEnvCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	v := newValidator(cmd)

	var missing []string
	if _, err := v.ValidateRequired(config.Required); err != nil {
		var mce *config.MissingConfigurationError
		if !errors.As(err, &mce) {
			return err
		}
		missing = mce.Keys
	}
	isMissing := make(map[string]bool, len(missing))
	for _, k := range missing {
		isMissing[k] = true
	}

	keys := make([]string, 0, len(config.Required))
	for k := range config.Required {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, heading("Required variables:"))
	for _, k := range keys {
		if isMissing[k] {
			fmt.Fprintf(out, "  %s %s (%s)\n", failMark("✘"), k, config.Required[k])
		} else {
			fmt.Fprintf(out, "  %s %s\n", okMark("✔"), k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d required variable(s) missing or invalid", len(missing))
	}

	if _, err := config.Load(v); err != nil {
		fmt.Fprintf(out, "%s %v\n", failMark("Optional settings:"), err)
		return errors.New("optional settings are invalid")
	}
	fmt.Fprintln(out, okMark("Environment is valid"))
	return nil
}
