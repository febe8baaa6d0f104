// Package validate implements the huntparse validate command.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshsymonds/huntparse/internal/cli"
	"github.com/joshsymonds/huntparse/internal/validation"
)

type result struct {
	err      error
	findings int
}

// NewCommand creates the validate command.
func NewCommand(rt *cli.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <findings.json | -> [findings.json...]",
		Short: "Check findings documents against the findings schema",
		Example: `  huntparse validate findings.json
  huntparse parse report.json --no-validate | huntparse validate -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rt, args)
		},
	}
}

func run(cmd *cobra.Command, rt *cli.Runtime, paths []string) error {
	stdinArgs := 0
	for _, path := range paths {
		if path == cli.StdinPath {
			stdinArgs++
		}
	}
	if stdinArgs > 1 {
		return fmt.Errorf("standard input (%q) can be given only once", cli.StdinPath)
	}

	validator, err := rt.Validator()
	if err != nil {
		return fmt.Errorf("building validator: %w", err)
	}

	results := make([]result, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = check(ctx, validator, path, cmd.InOrStdin())
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	var errs []error
	for i, path := range paths {
		res := results[i]
		if res.err != nil {
			rt.Logger.Error("Findings failed validation", "input", path, "error", res.err)
			errs = append(errs, fmt.Errorf("%s: %w", path, res.err))
			continue
		}
		rt.Logger.Debug("Findings passed validation", "input", path, "findings", res.findings)
		report(out, path, res.findings, len(paths) > 1)
	}
	return errors.Join(errs...)
}

func check(ctx context.Context, validator validation.Validator, path string, stdin io.Reader) result {
	if err := ctx.Err(); err != nil {
		return result{err: err}
	}

	in, err := cli.OpenInput(path, stdin)
	if err != nil {
		return result{err: err}
	}
	defer func() { _ = in.Close() }()

	findings, err := cli.DecodeFindings(in)
	if err != nil {
		return result{err: err}
	}
	if err := validator.Validate(findings); err != nil {
		return result{err: err}
	}
	return result{findings: len(findings)}
}

func report(w io.Writer, path string, count int, named bool) {
	if named {
		fmt.Fprintf(w, "✅ %s: %d findings conform to the findings schema\n", path, count)
		return
	}
	fmt.Fprintf(w, "✅ %d findings conform to the findings schema\n", count)
}
