// Package config implements the huntparse config command.
package config

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/huntparse/internal/cli"
	"github.com/joshsymonds/huntparse/internal/config"
)

// NewCommand creates the config command and its subcommands.
func NewCommand(rt *cli.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate huntparse configuration",
	}
	cmd.AddCommand(newValidateCommand(rt), newInitCommand(rt))
	return cmd
}

func newValidateCommand(rt *cli.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <config.yaml>",
		Short:   "Validate a configuration file",
		Example: "  huntparse config validate huntparse.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔍 Validating configuration: %s\n\n", args[0])

			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			printValidationResults(out, cfg)
			rt.Logger.Debug("Configuration valid", "path", args[0])
			fmt.Fprintln(out, "\n✅ Configuration is valid!")
			return nil
		},
	}
}

func newInitCommand(rt *cli.Runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			cfg.Parser.SeverityOverrides = map[string]string{"KHV002": "LOW"}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			if err := cli.WriteOutput(output, data, cmd.OutOrStdout()); err != nil {
				return err
			}
			if output != "" {
				rt.Logger.Info("Generated example configuration", "path", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the configuration to this file instead of stdout")
	return cmd
}

func printValidationResults(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "📋 Logging:")
	fmt.Fprintf(out, "   Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "   Format: %s\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		fmt.Fprintf(out, "   File: %s (max %d MB, %d backups)\n", cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}

	fmt.Fprintln(out, "\n🔧 Parser:")
	fmt.Fprintf(out, "   Default severity: %s\n", cfg.DefaultSeverity())
	if cfg.Parser.LocationScheme != "" {
		fmt.Fprintf(out, "   Location scheme: %s://\n", cfg.Parser.LocationScheme)
	}
	overrides := cfg.SeverityOverrides()
	if len(overrides) > 0 {
		vids := make([]string, 0, len(overrides))
		for vid := range overrides {
			vids = append(vids, vid)
		}
		sort.Strings(vids)
		fmt.Fprintf(out, "   Severity overrides: %d\n", len(vids))
		for _, vid := range vids {
			fmt.Fprintf(out, "     - %s → %s\n", vid, overrides[vid])
		}
	}

	fmt.Fprintln(out, "\n🛡️  Validation:")
	fmt.Fprintf(out, "   Schema: %t\n", cfg.Validation.Schema)
	fmt.Fprintf(out, "   Structural: %t\n", cfg.Validation.Structural)
}
