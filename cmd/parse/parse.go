// Package parse implements the huntparse parse command.
package parse

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/huntparse/internal/cli"
	"github.com/joshsymonds/huntparse/internal/kubehunter"
	"github.com/joshsymonds/huntparse/pkg/logger"
)

type options struct {
	output     string
	noValidate bool
	compact    bool
}

// NewCommand creates the parse command.
func NewCommand(rt *cli.Runtime) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "parse <report.json | ->",
		Short: "Convert a kube-hunter JSON report into normalized findings",
		Long: `Convert a kube-hunter JSON report into normalized findings.

The report is read from the given file, or from standard input when the
argument is "-". Findings are validated against the findings schema and
written as a JSON array to standard output or --output.`,
		Example: `  huntparse parse kube-hunter.json
  kube-hunter --report json | huntparse parse - --output findings.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rt, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write findings to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "Skip findings validation")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Write compact JSON")

	return cmd
}

func run(cmd *cobra.Command, rt *cli.Runtime, path string, opts options) error {
	log := logger.WithScanner(rt.Logger, kubehunter.ScannerName).With("input", path)

	in, err := cli.OpenInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	report, err := kubehunter.Decode(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	summary := kubehunter.Summarize(report)
	log.Debug("Decoded report",
		"nodes", summary.Nodes,
		"services", summary.Services,
		"vulnerabilities", summary.Vulnerabilities,
		"hunters", summary.Hunters)

	findings, err := rt.Parser().Normalize(report)
	if err != nil {
		return fmt.Errorf("normalizing %s: %w", path, err)
	}
	logOverrides(log, rt, report)

	if opts.noValidate {
		log.Warn("Skipping findings validation")
	} else {
		validator, vErr := rt.Validator()
		if vErr != nil {
			return fmt.Errorf("building validator: %w", vErr)
		}
		if vErr := validator.Validate(findings); vErr != nil {
			return fmt.Errorf("validating findings: %w", vErr)
		}
	}

	data, err := cli.EncodeFindings(findings, !opts.compact)
	if err != nil {
		return err
	}
	if err := cli.WriteOutput(opts.output, data, cmd.OutOrStdout()); err != nil {
		return err
	}

	log.Info("Normalized report", "findings", len(findings), "output", outputName(opts.output))
	return nil
}

func logOverrides(log logger.Logger, rt *cli.Runtime, report *kubehunter.Report) {
	for i, vuln := range report.Vulnerabilities {
		if sev, ok := rt.Config.GetSeverityOverride(vuln.VID); ok {
			log.Debug("Applied severity override",
				"index", i,
				"vid", vuln.VID,
				"reported", vuln.Severity,
				"severity", sev)
		}
	}
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
