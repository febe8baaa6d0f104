// Package main is the entry point for the huntparse CLI.
// huntparse converts kube-hunter JSON reports into normalized security
// findings and validates them against the shared findings schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/joshsymonds/huntparse/cmd/config"
	"github.com/joshsymonds/huntparse/cmd/parse"
	"github.com/joshsymonds/huntparse/cmd/validate"
	"github.com/joshsymonds/huntparse/internal/cli"
	"github.com/joshsymonds/huntparse/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code. Deferred cleanup
// runs here because os.Exit skips it.
func run() int {
	rt := cli.NewRuntime()
	defer func() { _ = rt.Close() }()

	if err := newRootCommand(rt).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func newRootCommand(rt *cli.Runtime) *cobra.Command {
	var (
		configFile string
		debug      bool
		logFormat  string
	)

	root := &cobra.Command{
		Use:           "huntparse",
		Short:         "Normalize kube-hunter reports into security findings",
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return rt.Init(configFile, debug, logFormat)
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console or json)")

	root.AddCommand(
		parse.NewCommand(rt),
		validate.NewCommand(rt),
		configcmd.NewCommand(rt),
	)
	return root
}
